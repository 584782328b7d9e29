// go-nfc-handover
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-nfc-handover.
//
// go-nfc-handover is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-nfc-handover is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-nfc-handover; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package handover

import (
	"go.uber.org/zap"
)

// CarrierActivationChecker decides whether the carrier with carrierID is
// still powering up according to a Handover Select record.
type CarrierActivationChecker interface {
	IsCarrierActivating(handoverSelect Record, carrierID string) bool
}

// CarrierActivationFunc adapts a plain function to CarrierActivationChecker
type CarrierActivationFunc func(handoverSelect Record, carrierID string) bool

// IsCarrierActivating calls f
func (f CarrierActivationFunc) IsCarrierActivating(handoverSelect Record, carrierID string) bool {
	return f(handoverSelect, carrierID)
}

// AlternativeCarrierChecker reads the power state from the alternative
// carrier records embedded in the Handover Select record.
type AlternativeCarrierChecker struct{}

// IsCarrierActivating implements CarrierActivationChecker
func (AlternativeCarrierChecker) IsCarrierActivating(handoverSelect Record, carrierID string) bool {
	return IsCarrierActivating(handoverSelect, carrierID)
}

// IsCarrierActivating reports whether the alternative carrier record that
// references carrierID has the activating power state. The first payload
// byte of the Handover Select record is the version and is skipped.
func IsCarrierActivating(handoverSelect Record, carrierID string) bool {
	if len(handoverSelect.Payload) <= 1 {
		return false
	}
	nested, err := ParseMessage(handoverSelect.Payload[1:])
	if err != nil {
		return false
	}
	for _, alt := range nested.Records {
		ac, ok := DecodeAlternativeCarrier(alt.Payload)
		if !ok {
			continue
		}
		if ac.CarrierRef == carrierID {
			return ac.PowerState == PowerStateActivating
		}
	}
	return false
}

// Parser classifies inbound NDEF messages into carrier descriptors
type Parser struct {
	checker CarrierActivationChecker
	logger  *zap.Logger
}

// ParserOption configures a Parser
type ParserOption func(*Parser)

// WithActivationChecker replaces the alternative carrier power state check
func WithActivationChecker(checker CarrierActivationChecker) ParserOption {
	return func(p *Parser) {
		if checker != nil {
			p.checker = checker
		}
	}
}

// WithParserLogger sets the logger used for diagnostics
func WithParserLogger(logger *zap.Logger) ParserOption {
	return func(p *Parser) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewParser creates a Parser
func NewParser(opts ...ParserOption) *Parser {
	p := &Parser{
		checker: AlternativeCarrierChecker{},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With(zap.String("component", "handover-parser"))
	return p
}

var defaultParser = NewParser()

// ClassifyAndParse inspects the first record of msg and parses the
// Bluetooth carrier it describes. It returns nil, without attempting any
// parse, when the message is not a Bluetooth handover message.
func ClassifyAndParse(msg *Message) *CarrierDescriptor {
	return defaultParser.Parse(msg)
}

// Parse is ClassifyAndParse using the parser's activation checker
func (p *Parser) Parse(msg *Message) *CarrierDescriptor {
	first, ok := msg.First()
	if !ok {
		return nil
	}

	var d CarrierDescriptor
	switch {
	case first.Is(TNFMedia, TypeBluetoothOOB):
		d = ParseBtOob(first.Payload)
	case first.Is(TNFMedia, TypeBluetoothLEOOB):
		d = ParseBleOob(first.Payload)
	case first.Is(TNFWellKnown, TypeHandoverSelect):
		return p.ParseHandoverSelect(msg)
	case first.Is(TNFExternal, TypeNokiaBluetooth):
		d = ParseLegacy(first.Payload)
	default:
		return nil
	}

	p.logger.Debug("parsed bluetooth carrier",
		zap.String("type", first.Type),
		zap.Bool("valid", d.Valid),
		zap.String("device", MaskAddress(d.Device)))
	return &d
}

// ParseHandoverSelect returns the first Bluetooth carrier of a Handover
// Select message, or nil when it has none.
func (p *Parser) ParseHandoverSelect(msg *Message) *CarrierDescriptor {
	first, ok := msg.First()
	if !ok {
		return nil
	}

	for _, r := range msg.Records {
		switch {
		case r.Is(TNFMedia, TypeBluetoothOOB):
			d := ParseBtOob(r.Payload)
			d.CarrierActivating = d.Valid && p.checker.IsCarrierActivating(first, r.ID)
			p.logger.Debug("parsed handover select",
				zap.Bool("valid", d.Valid),
				zap.Bool("activating", d.CarrierActivating),
				zap.String("device", MaskAddress(d.Device)))
			return &d
		case r.Is(TNFMedia, TypeBluetoothLEOOB):
			d := ParseBleOob(r.Payload)
			return &d
		}
	}
	return nil
}

// LocalAdapter is the local Bluetooth adapter as seen by the responder
type LocalAdapter interface {
	Address() string
	IsEnabled() bool
}

// IncomingHandover is a parsed Handover Request and the reply to send back
type IncomingHandover struct {
	Select  *Message
	Carrier CarrierDescriptor
}

// IncomingHandoverRequest answers a Handover Request from a peer with a
// Handover Select for the local adapter. The selected carrier is marked as
// activating while the local adapter is off.
func (p *Parser) IncomingHandoverRequest(msg *Message, local LocalAdapter) (*IncomingHandover, error) {
	first, ok := msg.First()
	if !ok {
		return nil, ErrEmptyMessage
	}
	if !first.Is(TNFWellKnown, TypeHandoverRequest) {
		return nil, ErrNotHandoverRequest
	}

	var carrier *CarrierDescriptor
	for _, r := range msg.Records {
		if r.Is(TNFMedia, TypeBluetoothOOB) {
			d := ParseBtOob(r.Payload)
			carrier = &d
		}
	}
	if carrier == nil || !carrier.Valid {
		return nil, ErrNoBluetoothCarrier
	}

	reply, err := EncodeBluetoothHandoverSelect(local.Address(), !local.IsEnabled())
	if err != nil {
		return nil, err
	}
	p.logger.Debug("answering handover request",
		zap.String("peer", MaskAddress(carrier.Device)),
		zap.Bool("activating", !local.IsEnabled()))

	return &IncomingHandover{Select: reply, Carrier: *carrier}, nil
}

// IncomingHandoverRequest uses the default parser
func IncomingHandoverRequest(msg *Message, local LocalAdapter) (*IncomingHandover, error) {
	return defaultParser.IncomingHandoverRequest(msg, local)
}
