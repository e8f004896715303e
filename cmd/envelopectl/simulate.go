package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/glimte/ocpp-envelope/actions"
	"github.com/glimte/ocpp-envelope/contracts"
	"github.com/glimte/ocpp-envelope/messaging"
	"github.com/spf13/cobra"
)

// newSimulateCmd answers CALL frames the way a minimal station would
func newSimulateCmd(a *app) *cobra.Command {
	var (
		sender string
		vendor string
	)
	cmd := &cobra.Command{
		Use:   "simulate <frame-file|->",
		Short: "Dispatch OCPP-J CALL frames to a built-in station and print the replies",
		Long: `simulate reads one OCPP-J frame per line and runs each through the inbound
interceptor chain and the Reset, Heartbeat and DataTransfer handlers.
Reset is accepted immediately or scheduled when OnIdle; DataTransfer only
knows the vendor given by --vendor.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := a.readInput(args[0])
			if err != nil {
				return err
			}
			dispatcher, err := a.dispatcher(vendor)
			if err != nil {
				return err
			}

			path := contracts.NewNetworkPath(contracts.NetworkingNodeID(sender))
			for _, line := range strings.Split(string(data), "\n") {
				line = strings.TrimSpace(line)
				if line == "" {
					continue
				}
				reply, err := dispatcher.Dispatch(cmd.Context(), []byte(line), messaging.Inbound{
					Sender:      contracts.NetworkingNodeID(sender),
					NetworkPath: path,
				})
				if err != nil {
					return err
				}
				fmt.Fprintln(a.out, string(reply))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&sender, "sender", "CSMS", "Node the frames arrive from")
	cmd.Flags().StringVar(&vendor, "vendor", "org.openchargealliance", "Vendor id DataTransfer accepts")
	return cmd
}

func (a *app) dispatcher(vendor string) (*messaging.Dispatcher, error) {
	v, err := a.validator()
	if err != nil {
		return nil, err
	}
	chain := a.cfg.InterceptorChain(a.logger, v)
	d := messaging.NewDispatcher(
		messaging.WithDispatcherLogger(a.logger),
		messaging.WithMiddleware(chain.Middleware()),
	)

	boundary := messaging.WithBoundaryLogger(a.logger)
	routes := map[string]messaging.CallHandler{
		actions.ActionReset: emitContext(a.cfg.EmitContext, actions.ResetRoute(func(ctx context.Context, req *actions.ResetRequest) (*actions.ResetResponse, error) {
			status := actions.ResetStatusAccepted
			if req.Type == actions.ResetTypeOnIdle {
				status = actions.ResetStatusScheduled
			}
			return actions.NewResetResponse(req, status, contracts.None[contracts.StatusInfo]()), nil
		}, boundary)),
		actions.ActionHeartbeat: emitContext(a.cfg.EmitContext, actions.HeartbeatRoute(func(ctx context.Context, req *actions.HeartbeatRequest) (*actions.HeartbeatResponse, error) {
			return actions.NewHeartbeatResponse(req, time.Now().UTC()), nil
		}, boundary)),
		actions.ActionDataTransfer: emitContext(a.cfg.EmitContext, actions.DataTransferRoute(func(ctx context.Context, req *actions.DataTransferRequest) (*actions.DataTransferResponse, error) {
			if req.VendorID != vendor {
				return actions.NewDataTransferResponse(req, actions.DataTransferStatusUnknownVendorID, contracts.None[contracts.StatusInfo](), nil), nil
			}
			return actions.NewDataTransferResponse(req, actions.DataTransferStatusAccepted, contracts.None[contracts.StatusInfo](), req.Data.OrElse(nil)), nil
		}, boundary)),
	}
	for action, route := range routes {
		if err := d.Register(action, route); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// contextSerializer is implemented by every action response
type contextSerializer[Resp any] interface {
	messaging.HasResponseHeader
	ToJSON(opts ...messaging.SerializeOption[Resp]) *contracts.JSONWriter
}

// emitContext makes route write the JSON-LD @context into its responses when emit is set
func emitContext[Req messaging.HasEnvelope, Resp contextSerializer[Resp]](emit bool, route messaging.Route[Req, Resp]) messaging.Route[Req, Resp] {
	if emit {
		route.Serialize = func(resp Resp) *contracts.JSONWriter {
			return resp.ToJSON(messaging.WithContext[Resp]())
		}
	}
	return route
}
