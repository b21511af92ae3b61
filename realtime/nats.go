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
	"strings"
	"sync"

	"github.com/nats-io/nats.go"
)

// natsSubscriber is the NATS transport. NATS subjects are
// dot-separated, so the slashed measurement topic maps onto
// "measurements.{deviceId}". Each Subscribe call gets its own NATS
// subscription; per-subscription delivery is sequential.
type natsSubscriber struct {
	conn *nats.Conn

	sync.Mutex
	nextID int
	subs   map[int]*nats.Subscription
}

// NewNATSSubscriber connects to the NATS server at url.
func NewNATSSubscriber(url string) (Subscriber, error) {
	conn, err := nats.Connect(url, nats.MaxReconnects(-1))
	if err != nil {
		return nil, err
	}
	return &natsSubscriber{
		conn: conn,
		subs: make(map[int]*nats.Subscription),
	}, nil
}

// subject converts a slashed topic to a NATS subject.
func subject(topic string) string {
	return strings.ReplaceAll(strings.TrimPrefix(topic, "/"), "/", ".")
}

func (s *natsSubscriber) Subscribe(topic string, h Handler) (Handle, error) {
	sub, err := s.conn.Subscribe(subject(topic), func(msg *nats.Msg) {
		m, err := decode(msg.Data)
		if err != nil {
			log.Printf("nats %s: %v", msg.Subject, err)
			return
		}
		h(m)
	})
	if err != nil {
		return Handle{}, err
	}

	s.Lock()
	defer s.Unlock()
	s.nextID++
	s.subs[s.nextID] = sub
	return Handle{Topic: topic, id: s.nextID}, nil
}

func (s *natsSubscriber) Unsubscribe(h Handle) error {
	s.Lock()
	sub, ok := s.subs[h.id]
	delete(s.subs, h.id)
	s.Unlock()
	if !ok {
		return nil
	}
	return sub.Unsubscribe()
}

func (s *natsSubscriber) Close() error {
	s.conn.Close()
	return nil
}
