/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package agent owns the connection pool: the stream worker driving a
// single connection's lifecycle, the listener accepting inbound sockets
// under admission control, and the Agent tying both together.
package agent

import (
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	liberr "github.com/nabbar/netagent/errors"
)

// NetAgentSettings configures every connection a single Agent manages, per
// the library's configuration contract.
type NetAgentSettings struct {
	ConnectionsMax                   int     `mapstructure:"connectionsMax" validate:"gte=1"`
	CommunicationGapMaxSec           float64 `mapstructure:"communicationGapMaxSec" validate:"gt=0"`
	CommunicationGapSlowdownDelaySec float64 `mapstructure:"communicationGapSlowdownDelaySec" validate:"gt=0"`
	CommunicationGapSlowdownAmountMs float64 `mapstructure:"communicationGapSlowdownAmountMs" validate:"gt=0"`
	ConcurrentConnectRequestsMax     int     `mapstructure:"concurrentConnectRequestsMax" validate:"gte=1"`
	ConnectRequestOverloadDelayMs    float64 `mapstructure:"connectRequestOverloadDelayMs" validate:"gt=0"`
	SocketMaxReceiveWaitMs           float64 `mapstructure:"socketMaxReceiveWaitMs" validate:"gt=0"`
	ClientConnectTimeoutSec          float64 `mapstructure:"clientConnectTimeoutSec" validate:"gt=0"`

	// PendingReceiveMaxBytes bounds a single recv's peeked size; above this,
	// the stream worker treats the peer as hostile and terminates.
	PendingReceiveMaxBytes int64 `mapstructure:"pendingReceiveMaxBytes" validate:"gt=0"`
}

// DefaultNetAgentSettings returns the documented defaults.
func DefaultNetAgentSettings() NetAgentSettings {
	return NetAgentSettings{
		ConnectionsMax:                   100,
		CommunicationGapMaxSec:           10.0,
		CommunicationGapSlowdownDelaySec: 1.5,
		CommunicationGapSlowdownAmountMs: 50.0,
		ConcurrentConnectRequestsMax:     10,
		ConnectRequestOverloadDelayMs:    80.0,
		SocketMaxReceiveWaitMs:           10.0,
		ClientConnectTimeoutSec:          3.0,
		PendingReceiveMaxBytes:           50 * 1024 * 1024,
	}
}

// Validate checks every field against its struct tag constraints.
func (s NetAgentSettings) Validate() liberr.Error {
	if e := validator.New().Struct(s); e != nil {
		return ErrorSettingsInvalid.Error(e)
	}
	return nil
}

// LoadNetAgentSettings decodes settings from v, starting from the defaults
// and overlaying whatever v defines under key, then validates the result.
func LoadNetAgentSettings(v *viper.Viper, key string) (NetAgentSettings, liberr.Error) {
	s := DefaultNetAgentSettings()

	if v != nil {
		sub := v
		if key != "" {
			sub = v.Sub(key)
		}

		if sub != nil {
			if e := sub.Unmarshal(&s); e != nil {
				return s, ErrorSettingsInvalid.Error(e)
			}
		}
	}

	if e := s.Validate(); e != nil {
		return s, e
	}

	return s, nil
}
