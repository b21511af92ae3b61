//
// Copyright 2016 Gregory Trubetskoy. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package realtime delivers push measurements to the widget. Devices
// publish on "/measurements/{deviceId}"; a subscriber decodes the
// JSON payload into a measurement and hands it to the handler.
// Handlers for one topic run in arrival order; cross-topic ordering
// is the consumer's problem (the widget holds its own lock).
//
// Two transports are provided, MQTT and NATS, behind the same
// Subscriber interface. Malformed payloads are logged and dropped,
// a push channel must survive a misbehaving device.
package realtime

import (
	"encoding/json"
	"fmt"

	"github.com/chartfeed/chartfeed/measure"
)

// Handler receives one decoded measurement.
type Handler func(m *measure.Measurement)

// Handle identifies an active subscription for Unsubscribe.
type Handle struct {
	Topic string
	id    int
}

// Subscriber is a push transport.
type Subscriber interface {
	Subscribe(topic string, h Handler) (Handle, error)
	Unsubscribe(h Handle) error
	Close() error
}

// Topic builds the measurement topic for a device.
func Topic(deviceID string) string {
	return fmt.Sprintf("/measurements/%s", deviceID)
}

// decode parses a push payload. Payloads missing the requested
// fragment are fine (the handler's Extract will skip them); payloads
// that are not measurements at all are an error.
func decode(payload []byte) (*measure.Measurement, error) {
	m := &measure.Measurement{}
	if err := json.Unmarshal(payload, m); err != nil {
		return nil, fmt.Errorf("realtime: bad measurement payload: %v", err)
	}
	if m.Time.IsZero() {
		return nil, fmt.Errorf("realtime: measurement without a time")
	}
	return m, nil
}
