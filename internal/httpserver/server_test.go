package httpserver_test

import (
	"context"
	"io"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/print-farm/internal/httpserver"
)

var _ = Describe("HTTP Server", func() {
	noop := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	Context("server creation", func() {
		DescribeTable("address validation",
			func(addr string, valid bool) {
				srv, err := httpserver.New(addr, noop)
				if valid {
					Expect(err).NotTo(HaveOccurred())
					Expect(srv.Addr()).To(Equal(addr))
				} else {
					Expect(err).To(HaveOccurred())
					Expect(srv).To(BeNil())
				}
			},
			Entry("hostname with port", "localhost:9999", true),
			Entry("IP address with port", "127.0.0.1:9999", true),
			Entry("port only", ":9999", true),
			Entry("too many colons", "invalid:host:port", false),
			Entry("missing port", "localhost", false),
			Entry("empty port", "localhost:", false),
		)

		It("accepts a write timeout option", func() {
			srv, err := httpserver.New(":9999", noop,
				httpserver.WithWriteTimeout(45*time.Second),
			)
			Expect(err).NotTo(HaveOccurred())
			Expect(srv).NotTo(BeNil())
		})
	})

	Context("server lifecycle", func() {
		var testServer *httpserver.Server

		AfterEach(func() {
			if testServer != nil {
				ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
				defer cancel()
				_ = testServer.Shutdown(ctx)
			}
		})

		It("starts and handles requests", func() {
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("test"))
			})
			var err error
			testServer, err = httpserver.New("127.0.0.1:19999", handler)
			Expect(err).NotTo(HaveOccurred())

			go func() {
				testServer.Start()
			}()

			var resp *http.Response
			Eventually(func() error {
				resp, err = http.Get("http://127.0.0.1:19999")
				return err
			}).Should(Succeed())
			defer resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			body, _ := io.ReadAll(resp.Body)
			Expect(string(body)).To(Equal("test"))
		})

		It("returns nil from Start after a graceful shutdown", func() {
			var err error
			testServer, err = httpserver.New("127.0.0.1:19998", noop)
			Expect(err).NotTo(HaveOccurred())

			startErr := make(chan error, 1)
			go func() {
				startErr <- testServer.Start()
			}()

			Eventually(func() error {
				resp, err := http.Get("http://127.0.0.1:19998")
				if err == nil {
					resp.Body.Close()
				}
				return err
			}).Should(Succeed())

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			Expect(testServer.Shutdown(ctx)).To(Succeed())
			Eventually(startErr).Should(Receive(BeNil()))
		})

		It("reports listen failures from Start", func() {
			first, err := httpserver.New("127.0.0.1:19997", noop)
			Expect(err).NotTo(HaveOccurred())
			go first.Start()
			DeferCleanup(func() {
				_ = first.Shutdown(context.Background())
			})

			Eventually(func() error {
				resp, err := http.Get("http://127.0.0.1:19997")
				if err == nil {
					resp.Body.Close()
				}
				return err
			}).Should(Succeed())

			second, err := httpserver.New("127.0.0.1:19997", noop)
			Expect(err).NotTo(HaveOccurred())
			Expect(second.Start()).To(HaveOccurred())
		})
	})
})
