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

package httpd

import (
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	liberr "github.com/nabbar/netagent/errors"
)

// HTTPServerSettings configures the request pipeline sitting on top of an
// agent.Agent: how long a client gets to finish sending headers, how often
// the filesystem responder rescans its webroot, and how many buffered bytes
// justify dispatching a request task.
type HTTPServerSettings struct {
	// HeaderParseTimeoutSec bounds how long a request task will keep
	// retrying Probe before giving up.
	HeaderParseTimeoutSec float64 `mapstructure:"headerParseTimeoutSec" validate:"gt=0"`

	// MinReadableBytesToDispatch is the readable-byte threshold before a
	// connection is considered worth dispatching.
	MinReadableBytesToDispatch int `mapstructure:"minReadableBytesToDispatch" validate:"gte=1"`

	// FilesystemRefreshIntervalSec controls how often
	// HttpFilesystem.RefreshTimed rescans the webroot.
	FilesystemRefreshIntervalSec float64 `mapstructure:"filesystemRefreshIntervalSec" validate:"gt=0"`

	// DispatchAsync selects whether request tasks run synchronously on the
	// embedder's HandleRequests call (false) or offloaded to a goroutine per
	// request (true). Both modes must produce identical responses.
	DispatchAsync bool `mapstructure:"dispatchAsync"`
}

// DefaultHTTPServerSettings returns the built-in documented defaults.
func DefaultHTTPServerSettings() HTTPServerSettings {
	return HTTPServerSettings{
		HeaderParseTimeoutSec:        3.0,
		MinReadableBytesToDispatch:   26,
		FilesystemRefreshIntervalSec: 30.0,
		DispatchAsync:                false,
	}
}

// Validate checks every field against its struct tag constraints.
func (s HTTPServerSettings) Validate() liberr.Error {
	if e := validator.New().Struct(s); e != nil {
		return ErrorSettingsInvalid.Error(e)
	}
	return nil
}

// LoadHTTPServerSettings decodes settings from v, starting from the
// defaults and overlaying whatever v defines under key, then validates.
func LoadHTTPServerSettings(v *viper.Viper, key string) (HTTPServerSettings, liberr.Error) {
	s := DefaultHTTPServerSettings()

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
