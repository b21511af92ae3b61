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

package realtime

import (
	"log"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// mqttSubscriber subscribes over MQTT. Several widget series may
// watch the same device, so topic subscriptions are refcounted: the
// broker subscription is taken on the first handler and released
// with the last.
type mqttSubscriber struct {
	client mqtt.Client

	sync.Mutex
	nextID   int
	handlers map[string]map[int]Handler
}

// NewMQTTSubscriber connects to the broker at addr (e.g.
// "tcp://localhost:1883") with the given client id.
func NewMQTTSubscriber(addr, clientID string) (Subscriber, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(addr)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return &mqttSubscriber{
		client:   client,
		handlers: make(map[string]map[int]Handler),
	}, nil
}

func (s *mqttSubscriber) Subscribe(topic string, h Handler) (Handle, error) {
	s.Lock()
	defer s.Unlock()

	first := s.handlers[topic] == nil
	if first {
		s.handlers[topic] = make(map[int]Handler)
	}
	s.nextID++
	id := s.nextID
	s.handlers[topic][id] = h

	if first {
		token := s.client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
			s.dispatch(msg.Topic(), msg.Payload())
		})
		if token.Wait() && token.Error() != nil {
			delete(s.handlers, topic)
			return Handle{}, token.Error()
		}
	}
	return Handle{Topic: topic, id: id}, nil
}

func (s *mqttSubscriber) dispatch(topic string, payload []byte) {
	m, err := decode(payload)
	if err != nil {
		log.Printf("mqtt %s: %v", topic, err)
		return
	}

	s.Lock()
	hs := make([]Handler, 0, len(s.handlers[topic]))
	for _, h := range s.handlers[topic] {
		hs = append(hs, h)
	}
	s.Unlock()

	// paho delivers per-topic messages sequentially, so handlers see
	// arrival order
	for _, h := range hs {
		h(m)
	}
}

func (s *mqttSubscriber) Unsubscribe(h Handle) error {
	s.Lock()
	defer s.Unlock()

	hs, ok := s.handlers[h.Topic]
	if !ok {
		return nil
	}
	delete(hs, h.id)
	if len(hs) > 0 {
		return nil
	}
	delete(s.handlers, h.Topic)
	token := s.client.Unsubscribe(h.Topic)
	if token.Wait() && token.Error() != nil {
		return token.Error()
	}
	return nil
}

func (s *mqttSubscriber) Close() error {
	s.client.Disconnect(250)
	return nil
}
