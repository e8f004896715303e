package actions

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/glimte/ocpp-envelope/contracts"
	"github.com/glimte/ocpp-envelope/schema"
	"github.com/glimte/ocpp-envelope/serialization"
)

// ProtocolVersion is the OCPP version the descriptors describe
const ProtocolVersion = "2.1.0"

func statusProperties(status *schema.PropertyDef, extra map[string]*schema.PropertyDef) map[string]*schema.PropertyDef {
	props := map[string]*schema.PropertyDef{
		"status":        status,
		statusInfoField: schema.StatusInfo(),
	}
	for k, v := range extra {
		props[k] = v
	}
	return schema.Envelope(props)
}

// Descriptors returns the wire descriptors of every action in this package
func Descriptors() []serialization.Descriptor {
	version := semver.MustParse(ProtocolVersion)
	evseID := schema.Integer()
	evseMin := 0.0
	evseID.Minimum = &evseMin

	return []serialization.Descriptor{
		{
			Action:          ActionReset,
			Version:         version,
			RequestContext:  ResetRequestContext,
			ResponseContext: ResetResponseContext,
			RequestSchema: &schema.Schema{
				Name:    ActionReset,
				Version: ProtocolVersion,
				ID:      string(ResetRequestContext),
				Properties: schema.Envelope(map[string]*schema.PropertyDef{
					"type":   schema.Enum(ResetTypeImmediate, ResetTypeOnIdle),
					"evseId": evseID,
				}),
				Required: []string{"type"},
			},
			ResponseSchema: &schema.Schema{
				Name:       serialization.ResponseKey(ActionReset),
				Version:    ProtocolVersion,
				ID:         string(ResetResponseContext),
				Properties: statusProperties(schema.Enum(ResetStatusAccepted, ResetStatusRejected, ResetStatusScheduled), nil),
				Required:   []string{"status"},
			},
		},
		{
			Action:          ActionHeartbeat,
			Version:         version,
			RequestContext:  HeartbeatRequestContext,
			ResponseContext: HeartbeatResponseContext,
			RequestSchema: &schema.Schema{
				Name:       ActionHeartbeat,
				Version:    ProtocolVersion,
				ID:         string(HeartbeatRequestContext),
				Properties: schema.Envelope(map[string]*schema.PropertyDef{}),
			},
			ResponseSchema: &schema.Schema{
				Name:    serialization.ResponseKey(ActionHeartbeat),
				Version: ProtocolVersion,
				ID:      string(HeartbeatResponseContext),
				Properties: schema.Envelope(map[string]*schema.PropertyDef{
					"currentTime": schema.DateTime(),
				}),
				Required: []string{"currentTime"},
			},
		},
		{
			Action:          ActionDataTransfer,
			Version:         version,
			RequestContext:  DataTransferRequestContext,
			ResponseContext: DataTransferResponseContext,
			RequestSchema: &schema.Schema{
				Name:    ActionDataTransfer,
				Version: ProtocolVersion,
				ID:      string(DataTransferRequestContext),
				Properties: schema.Envelope(map[string]*schema.PropertyDef{
					"vendorId":  nonEmpty(schema.String(contracts.MaxVendorIDLength)),
					"messageId": schema.String(MaxMessageIDLength),
					dataField:   {Description: "Vendor specific data of any JSON type"},
				}),
				Required: []string{"vendorId"},
			},
			ResponseSchema: &schema.Schema{
				Name:    serialization.ResponseKey(ActionDataTransfer),
				Version: ProtocolVersion,
				ID:      string(DataTransferResponseContext),
				Properties: statusProperties(
					schema.Enum(
						DataTransferStatusAccepted,
						DataTransferStatusRejected,
						DataTransferStatusUnknownMessageID,
						DataTransferStatusUnknownVendorID,
					),
					map[string]*schema.PropertyDef{
						dataField: {Description: "Vendor specific data of any JSON type"},
					},
				),
				Required: []string{"status"},
			},
		},
	}
}

func nonEmpty(p *schema.PropertyDef) *schema.PropertyDef {
	minLength := 1
	p.MinLength = &minLength
	return p
}

// Register adds every action descriptor to registry
func Register(registry *serialization.Registry) error {
	for _, d := range Descriptors() {
		if err := registry.Register(d); err != nil {
			return fmt.Errorf("failed to register %s: %w", d.Key(), err)
		}
	}
	return nil
}
