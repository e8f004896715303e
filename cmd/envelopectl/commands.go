package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/glimte/ocpp-envelope/contracts"
	"github.com/glimte/ocpp-envelope/schema"
	"github.com/glimte/ocpp-envelope/serialization"
	"github.com/glimte/ocpp-envelope/signing"
	"github.com/spf13/cobra"
)

func newValidateCmd(a *app) *cobra.Command {
	var response bool
	cmd := &cobra.Command{
		Use:   "validate <action> <payload-file|->",
		Short: "Validate a payload against the action's schema",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := a.readInput(args[1])
			if err != nil {
				return err
			}
			v, err := a.validator()
			if err != nil {
				return err
			}

			key := args[0]
			if response {
				key = serialization.ResponseKey(key)
			}
			result := v.Validate(context.Background(), key, payload)
			if !result.Valid {
				for _, e := range result.Errors {
					fmt.Fprintf(a.out, "  %s\n", e.Error())
				}
				return fmt.Errorf("%s payload is invalid", key)
			}
			fmt.Fprintf(a.out, "%s payload is valid\n", key)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&response, "response", "r", false, "Validate against the response schema")
	return cmd
}

func newSchemaCmd(a *app) *cobra.Command {
	var (
		response bool
		version  string
	)
	cmd := &cobra.Command{
		Use:   "schema <action>",
		Short: "Print the JSON Schema of an action's payload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if version == "" {
				version = a.cfg.ProtocolVersion
			}
			d, err := a.registry.LookupVersion(args[0], version)
			if err != nil {
				return err
			}
			s := d.RequestSchema
			if response {
				s = d.ResponseSchema
			}
			doc, err := schema.GenerateJSONSchema(s)
			if err != nil {
				return err
			}
			return writeIndented(a.out, doc)
		},
	}
	cmd.Flags().BoolVarP(&response, "response", "r", false, "Print the response schema")
	cmd.Flags().StringVar(&version, "version", "", "Protocol version or constraint, protocol_version from the config when empty")
	return cmd
}

// Actions subcommand lists what the registry knows
func newActionsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "actions",
		Short: "List registered actions and versions",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(a.out, "%-16s %-10s %s\n", "ACTION", "VERSION", "CONTEXT")
			fmt.Fprintln(a.out, strings.Repeat("-", 72))
			for _, d := range a.registry.List() {
				fmt.Fprintf(a.out, "%-16s %-10s %s\n", d.Action, d.Version, d.RequestContext)
			}
			return nil
		},
	}
}

func newKeygenCmd(a *app) *cobra.Command {
	var (
		method  string
		outPath string
	)
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a signing key pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			m := a.cfg.SigningMethod
			if method != "" {
				parsed, err := signing.ParseMethod(method)
				if err != nil {
					return err
				}
				m = parsed
			}
			signer, err := signing.GenerateSigner(m)
			if err != nil {
				return err
			}

			enc := a.cfg.SignatureEncoding
			priv, err := enc.Encode(signer.PrivateKey())
			if err != nil {
				return err
			}
			pub, err := enc.Encode(signer.PublicKey())
			if err != nil {
				return err
			}

			if outPath != "" {
				if err := os.WriteFile(outPath, []byte(priv+"\n"), 0o600); err != nil {
					return fmt.Errorf("failed to write key: %w", err)
				}
				a.logger.Info("private key written", "path", outPath, "method", m)
			} else {
				fmt.Fprintf(a.out, "private: %s\n", priv)
			}
			fmt.Fprintf(a.out, "method:  %s\n", m)
			fmt.Fprintf(a.out, "keyId:   %s\n", pub)
			return nil
		},
	}
	cmd.Flags().StringVarP(&method, "method", "m", "", "Signing method (ed25519, secp256r1, secp256k1)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write the private key to this file instead of stdout")
	return cmd
}

func newSignCmd(a *app) *cobra.Command {
	var (
		method      string
		keyPath     string
		name        string
		description string
		timestamp   bool
	)
	cmd := &cobra.Command{
		Use:   "sign <payload-file|->",
		Short: "Add a signature to a payload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := a.readInput(args[0])
			if err != nil {
				return err
			}

			m := a.cfg.SigningMethod
			if method != "" {
				if m, err = signing.ParseMethod(method); err != nil {
					return err
				}
			}
			keyText, err := os.ReadFile(keyPath)
			if err != nil {
				return fmt.Errorf("failed to read key: %w", err)
			}
			keyBytes, err := a.cfg.SignatureEncoding.Decode(strings.TrimSpace(string(keyText)))
			if err != nil {
				return fmt.Errorf("failed to decode key: %w", err)
			}
			signer, err := signing.NewSigner(m, keyBytes)
			if err != nil {
				return err
			}

			var opts []signing.SignOption
			if name != "" {
				opts = append(opts, signing.WithSignerName(name))
			}
			if description != "" {
				opts = append(opts, signing.WithSignatureDescription(description))
			}
			if timestamp {
				opts = append(opts, signing.WithSigningTime(time.Now))
			}

			sigs, err := signing.Sign(payload, a.cfg.SignatureEncoding, []signing.Signer{signer}, opts...)
			if err != nil {
				return err
			}
			signed, err := signing.Attach(payload, sigs)
			if err != nil {
				return err
			}
			a.logger.Debug("payload signed", "method", m, "keyId", sigs[0].KeyID)
			_, err = fmt.Fprintln(a.out, string(signed))
			return err
		},
	}
	cmd.Flags().StringVarP(&method, "method", "m", "", "Signing method of the key")
	cmd.Flags().StringVarP(&keyPath, "key", "k", "", "File holding the encoded private key")
	cmd.Flags().StringVar(&name, "name", "", "Signer name stored with the signature")
	cmd.Flags().StringVar(&description, "description", "", "Description stored with the signature")
	cmd.Flags().BoolVar(&timestamp, "timestamp", false, "Record the signing time")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}

func newVerifyCmd(a *app) *cobra.Command {
	var (
		require bool
		trusted []string
	)
	cmd := &cobra.Command{
		Use:   "verify <payload-file|->",
		Short: "Verify every signature embedded in a payload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := a.readInput(args[0])
			if err != nil {
				return err
			}
			cfg := a.cfg
			if cmd.Flags().Changed("require") {
				cfg.RequireSignatures = require
			}
			if len(trusted) > 0 {
				cfg.TrustedKeys = append(cfg.TrustedKeys, trusted...)
			}

			result := signing.NewVerifier(cfg.VerifierOptions(a.logger)...).Verify(payload)
			if !result.IsOK() {
				return fmt.Errorf("verification failed: %s", result)
			}
			fmt.Fprintln(a.out, "signatures valid")
			return nil
		},
	}
	cmd.Flags().BoolVar(&require, "require", false, "Fail unsigned payloads")
	cmd.Flags().StringSliceVar(&trusted, "trust", nil, "Accepted key ids, any key when empty")
	return cmd
}

func newRouteCmd(a *app) *cobra.Command {
	var (
		hops   []string
		sender string
	)
	cmd := &cobra.Command{
		Use:   "route",
		Short: "Compute how a response travels back along a request's path",
		Example: `  envelopectl route --path CS01,LC01,CSMS --sender LC01
  envelopectl route --path CS01,CSMS --sender CS01`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]contracts.NetworkingNodeID, 0, len(hops))
			for _, h := range hops {
				id, err := contracts.ParseNetworkingNodeID(h)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}
			routing, err := contracts.ResponseRouting(contracts.NewNetworkPath(ids...), contracts.NetworkingNodeID(strings.TrimSpace(sender)))
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "destination: %s\n", routing.Destination())
			fmt.Fprintf(a.out, "next hop:    %s\n", routing.NextHop())
			fmt.Fprintf(a.out, "path:        %s\n", routing.Resolve())
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&hops, "path", nil, "Network path of the request as received, requester first")
	cmd.Flags().StringVar(&sender, "sender", "", "Node that handed the request over")
	_ = cmd.MarkFlagRequired("path")
	return cmd
}

func newConfigCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as TOML",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.cfg.Write(a.out)
		},
	}
}

func writeIndented(w io.Writer, doc []byte) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, doc, "", "  "); err != nil {
		return err
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(w)
	return err
}
