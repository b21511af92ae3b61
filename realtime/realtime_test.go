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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopic(t *testing.T) {
	assert.Equal(t, "/measurements/8839", Topic("8839"))
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "measurements.8839", subject("/measurements/8839"))
}

func TestDecode(t *testing.T) {
	payload := []byte(`{
		"time": "2026-08-30T12:00:00Z",
		"source": "8839",
		"values": {"c8y_Temperature": {"T": {"value": 21.5, "unit": "C"}}}
	}`)

	m, err := decode(payload)
	require.NoError(t, err)
	assert.Equal(t, "8839", m.Source)

	v, ok := m.Extract("c8y_Temperature", "T")
	require.True(t, ok)
	assert.Equal(t, 21.5, v)

	// a measurement for another fragment decodes fine, Extract
	// just misses
	_, ok = m.Extract("c8y_Humidity", "H")
	assert.False(t, ok)
}

func TestDecodeBadPayloads(t *testing.T) {
	_, err := decode([]byte("not json"))
	require.Error(t, err)

	// no time at all
	_, err = decode([]byte(`{"source": "8839"}`))
	require.Error(t, err)
}
