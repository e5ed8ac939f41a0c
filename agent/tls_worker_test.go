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
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"time"

	"github.com/nabbar/netagent/agent"
	"github.com/nabbar/netagent/tlsadapter"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func selfSignedServerCert() tls.Certificate {
	priv, e := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	Expect(e).To(BeNil())

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "127.0.0.1"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		DNSNames:     []string{"localhost"},
	}

	der, e := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &priv.PublicKey, priv)
	Expect(e).To(BeNil())

	return tls.Certificate{
		Certificate: [][]byte{der},
		PrivateKey:  priv,
	}
}

var _ = Describe("ServerEncrypted idle policy", func() {
	It("keeps a TLS connection alive across several recv-wait timeouts instead of failing on the first one", func() {
		settings := agent.DefaultNetAgentSettings()
		settings.SocketMaxReceiveWaitMs = 10
		settings.CommunicationGapMaxSec = 5
		settings.CommunicationGapSlowdownDelaySec = 3

		a, e := agent.New(agent.ModeServerEncrypted, settings)
		Expect(e).To(BeNil())

		Expect(a.EnableTLS(tlsadapter.ProfileServerMinFSGCM, selfSignedServerCert())).To(BeNil())

		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		defer a.Shutdown(ctx)

		Expect(a.Listen(ctx, "127.0.0.1", "0")).To(BeNil())
		addr := a.ListenAddr()
		Expect(addr).NotTo(BeNil())

		cc, derr := tls.Dial("tcp", addr.String(), &tls.Config{InsecureSkipVerify: true}) // nolint:gosec -- self-signed cert in this test
		Expect(derr).To(BeNil())
		defer cc.Close()

		_, werr := cc.Write([]byte("hello"))
		Expect(werr).To(BeNil())

		Eventually(func() int {
			conns := a.GetAllConnections()
			if len(conns) != 1 {
				return 0
			}
			return conns[0].GetReceiveDataSize()
		}, time.Second, 5*time.Millisecond).Should(Equal(5))

		// Idle well past several SocketMaxReceiveWaitMs cycles, but short of
		// CommunicationGapMaxSec: the connection must still be alive.
		time.Sleep(300 * time.Millisecond)

		conns := a.GetAllConnections()
		Expect(conns).To(HaveLen(1))
		Expect(conns[0].IsConnected()).To(BeTrue())
		Expect(conns[0].IsFailed()).To(BeFalse())
	})
})
