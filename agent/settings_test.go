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

package agent_test

import (
	"github.com/spf13/viper"

	"github.com/nabbar/netagent/agent"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("NetAgentSettings", func() {
	It("defaults validate cleanly", func() {
		Expect(agent.DefaultNetAgentSettings().Validate()).To(BeNil())
	})

	It("rejects a non-positive connectionsMax", func() {
		s := agent.DefaultNetAgentSettings()
		s.ConnectionsMax = 0
		Expect(s.Validate()).NotTo(BeNil())
	})

	It("rejects a non-positive communicationGapMaxSec", func() {
		s := agent.DefaultNetAgentSettings()
		s.CommunicationGapMaxSec = 0
		Expect(s.Validate()).NotTo(BeNil())
	})

	It("loads overrides from viper and keeps unset fields at default", func() {
		v := viper.New()
		v.Set("net.connectionsMax", 7)

		s, e := agent.LoadNetAgentSettings(v, "net")
		Expect(e).To(BeNil())
		Expect(s.ConnectionsMax).To(Equal(7))
		Expect(s.ClientConnectTimeoutSec).To(Equal(agent.DefaultNetAgentSettings().ClientConnectTimeoutSec))
	})

	It("falls back to defaults when v is nil", func() {
		s, e := agent.LoadNetAgentSettings(nil, "")
		Expect(e).To(BeNil())
		Expect(s).To(Equal(agent.DefaultNetAgentSettings()))
	})
})
