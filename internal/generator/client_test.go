package generator_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/print-farm/internal/circuitbreaker"
	"github.com/angeloszaimis/print-farm/internal/generator"
	"github.com/angeloszaimis/print-farm/internal/label"
	"github.com/angeloszaimis/print-farm/pkg/logger"
)

var _ = Describe("Client", func() {
	var (
		client  *generator.Client
		remote  *httptest.Server
		handler http.HandlerFunc
		payload label.GeneratorPayload
		ctx     context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		client = generator.NewClient(2*time.Second, logger.Discard())
		payload = label.GeneratorPayload{
			Template:  "simple",
			Data:      map[string]json.RawMessage{"content": json.RawMessage(`"Shelf A"`)},
			LabelSize: "2x4",
			Copies:    2,
			Print:     true,
		}

		handler = func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"ok":true,"file":"label_2x4.pdf"}`))
		}
		remote = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handler(w, r)
		}))
	})

	AfterEach(func() {
		remote.Close()
	})

	Describe("Endpoint", func() {
		It("should append /generate to the base URL", func() {
			Expect(generator.Endpoint("http://10.0.0.1:3001")).To(Equal("http://10.0.0.1:3001/generate"))
		})

		It("should not strip a trailing slash", func() {
			Expect(generator.Endpoint("http://10.0.0.1:3001/")).To(Equal("http://10.0.0.1:3001//generate"))
		})
	})

	Describe("Generate", func() {
		It("should POST the JSON payload to /generate", func() {
			var (
				method, path, contentType string
				received                  []byte
			)
			handler = func(w http.ResponseWriter, r *http.Request) {
				method = r.Method
				path = r.URL.Path
				contentType = r.Header.Get("Content-Type")
				received, _ = io.ReadAll(r.Body)
				w.Write([]byte(`{}`))
			}

			_, err := client.Generate(ctx, remote.URL, payload)
			Expect(err).NotTo(HaveOccurred())
			Expect(method).To(Equal(http.MethodPost))
			Expect(path).To(Equal("/generate"))
			Expect(contentType).To(Equal("application/json"))
			Expect(received).To(MatchJSON(`{"template":"simple","data":{"content":"Shelf A"},"labelSize":"2x4","copies":2,"print":true}`))
		})

		It("should relay a JSON body byte for byte", func() {
			result, err := client.Generate(ctx, remote.URL, payload)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.StatusCode).To(Equal(http.StatusOK))
			Expect(string(result.Body)).To(Equal(`{"ok":true,"file":"label_2x4.pdf"}`))
		})

		It("should accept any 2xx status", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusCreated)
				w.Write([]byte(`{"created":true}`))
			}

			result, err := client.Generate(ctx, remote.URL, payload)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.StatusCode).To(Equal(http.StatusCreated))
		})

		It("should wrap a non-JSON success body", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("OK"))
			}

			result, err := client.Generate(ctx, remote.URL, payload)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Body).To(MatchJSON(`{"raw":"OK"}`))
		})

		It("should reject a body larger than 10 MiB instead of truncating it", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				w.Write(bytes.Repeat([]byte("a"), 10<<20+1))
			}

			result, err := client.Generate(ctx, remote.URL, payload)
			Expect(result).To(BeNil())
			Expect(errors.Is(err, generator.ErrResponseTooLarge)).To(BeTrue())

			var unreachable *generator.UnreachableError
			Expect(errors.As(err, &unreachable)).To(BeTrue())
		})

		It("should accept a body of exactly 10 MiB", func() {
			body := append(append([]byte(`"`), bytes.Repeat([]byte("a"), 10<<20-2)...), '"')
			handler = func(w http.ResponseWriter, r *http.Request) {
				w.Write(body)
			}

			result, err := client.Generate(ctx, remote.URL, payload)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Body).To(HaveLen(10 << 20))
		})

		It("should return a RemoteError for non-2xx statuses", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(`{"msg":"fail"}`))
			}

			result, err := client.Generate(ctx, remote.URL, payload)
			Expect(result).To(BeNil())

			var remoteErr *generator.RemoteError
			Expect(errors.As(err, &remoteErr)).To(BeTrue())
			Expect(remoteErr.StatusCode).To(Equal(500))
			Expect(remoteErr.Body).To(MatchJSON(`{"msg":"fail"}`))
		})

		It("should wrap a non-JSON error body", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "bad label size", http.StatusBadRequest)
			}

			_, err := client.Generate(ctx, remote.URL, payload)

			var remoteErr *generator.RemoteError
			Expect(errors.As(err, &remoteErr)).To(BeTrue())
			Expect(remoteErr.StatusCode).To(Equal(400))
			Expect(remoteErr.Body).To(MatchJSON(`{"raw":"bad label size\n"}`))
		})

		It("should return an UnreachableError when the connection is refused", func() {
			listener, err := net.Listen("tcp", "127.0.0.1:0")
			Expect(err).NotTo(HaveOccurred())
			deadURL := "http://" + listener.Addr().String()
			listener.Close()

			_, err = client.Generate(ctx, deadURL, payload)

			var unreachable *generator.UnreachableError
			Expect(errors.As(err, &unreachable)).To(BeTrue())
			Expect(unreachable.URL).To(Equal(deadURL + "/generate"))
			Expect(err.Error()).To(ContainSubstring("connection refused"))
		})

		It("should return an UnreachableError for an unusable URL", func() {
			_, err := client.Generate(ctx, "not a url", payload)

			var unreachable *generator.UnreachableError
			Expect(errors.As(err, &unreachable)).To(BeTrue())
			Expect(err.Error()).NotTo(BeEmpty())
		})

		It("should time out slow generators", func() {
			release := make(chan struct{})
			defer close(release)
			handler = func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-release:
				case <-r.Context().Done():
				}
			}

			slow := generator.NewClient(50*time.Millisecond, logger.Discard())
			_, err := slow.Generate(ctx, remote.URL, payload)

			var unreachable *generator.UnreachableError
			Expect(errors.As(err, &unreachable)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("Timeout"))
		})

		It("should make exactly one call per invocation", func() {
			var calls atomic.Int32
			handler = func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(http.StatusServiceUnavailable)
			}

			_, err := client.Generate(ctx, remote.URL, payload)
			Expect(err).To(HaveOccurred())
			Expect(calls.Load()).To(Equal(int32(1)))
		})
	})

	Describe("with circuit breakers", func() {
		var (
			breakers *circuitbreaker.Registry
			deadURL  string
		)

		BeforeEach(func() {
			listener, err := net.Listen("tcp", "127.0.0.1:0")
			Expect(err).NotTo(HaveOccurred())
			deadURL = "http://" + listener.Addr().String()
			listener.Close()

			breakers = circuitbreaker.NewRegistry(2, time.Minute)
			breakers.Breaker(deadURL)
			breakers.Breaker(remote.URL)
			client = generator.NewClient(time.Second, logger.Discard(), generator.WithCircuitBreakers(breakers))
		})

		It("should fail fast once the breaker opens", func() {
			client.Generate(ctx, deadURL, payload)
			client.Generate(ctx, deadURL, payload)
			Expect(breakers.Stats()[deadURL]).To(Equal(circuitbreaker.StateOpen))

			_, err := client.Generate(ctx, deadURL, payload)
			Expect(errors.Is(err, circuitbreaker.ErrOpen)).To(BeTrue())

			var unreachable *generator.UnreachableError
			Expect(errors.As(err, &unreachable)).To(BeTrue())
		})

		It("should not count remote error statuses as failures", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			}

			for i := 0; i < 3; i++ {
				_, err := client.Generate(ctx, remote.URL, payload)
				var remoteErr *generator.RemoteError
				Expect(errors.As(err, &remoteErr)).To(BeTrue())
			}
			Expect(breakers.Stats()[remote.URL]).To(Equal(circuitbreaker.StateClosed))
		})

		It("should recover when the caller goes away during the half-open call", func() {
			quick := circuitbreaker.NewRegistry(1, 50*time.Millisecond)
			cb := quick.Breaker(remote.URL)
			guarded := generator.NewClient(time.Second, logger.Discard(), generator.WithCircuitBreakers(quick))

			cb.RecordFailure()
			Expect(cb.State()).To(Equal(circuitbreaker.StateOpen))
			time.Sleep(60 * time.Millisecond)

			cancelled, cancel := context.WithCancel(ctx)
			cancel()
			_, err := guarded.Generate(cancelled, remote.URL, payload)
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, circuitbreaker.ErrOpen)).To(BeFalse())

			result, err := guarded.Generate(ctx, remote.URL, payload)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.StatusCode).To(Equal(http.StatusOK))
			Expect(cb.State()).To(Equal(circuitbreaker.StateClosed))
		})

		It("should leave unregistered override URLs unguarded", func() {
			other := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{}`))
			}))
			defer other.Close()

			_, err := client.Generate(ctx, other.URL, payload)
			Expect(err).NotTo(HaveOccurred())

			_, found := breakers.Lookup(other.URL)
			Expect(found).To(BeFalse())
		})
	})

	Describe("with a custom HTTP client", func() {
		It("should use it for calls", func() {
			var used atomic.Bool
			custom := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
				used.Store(true)
				return http.DefaultTransport.RoundTrip(r)
			})}

			client = generator.NewClient(time.Second, logger.Discard(), generator.WithHTTPClient(custom))
			_, err := client.Generate(ctx, remote.URL, payload)
			Expect(err).NotTo(HaveOccurred())
			Expect(used.Load()).To(BeTrue())
		})
	})
})

var _ = Describe("ParseBody", func() {
	It("should keep valid JSON unchanged", func() {
		Expect(string(generator.ParseBody([]byte(`[1, 2]`)))).To(Equal(`[1, 2]`))
		Expect(string(generator.ParseBody([]byte(`"OK"`)))).To(Equal(`"OK"`))
	})

	It("should wrap text", func() {
		Expect(generator.ParseBody([]byte("OK"))).To(MatchJSON(`{"raw":"OK"}`))
	})

	It("should wrap an empty body", func() {
		Expect(generator.ParseBody(nil)).To(MatchJSON(`{"raw":""}`))
	})

	It("should wrap truncated JSON", func() {
		Expect(generator.ParseBody([]byte(`{"ok":`))).To(MatchJSON(`{"raw":"{\"ok\":"}`))
	})
})

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}
