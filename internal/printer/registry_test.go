package printer_test

import (
	"errors"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/print-farm/internal/printer"
)

var _ = Describe("Registry", func() {
	var registry *printer.Registry

	BeforeEach(func() {
		registry = printer.NewRegistry("http://small.local:3001", "http://medium.local:3002", "")
	})

	Describe("Resolve", func() {
		DescribeTable("named targets",
			func(target, expected string) {
				baseURL, err := registry.Resolve(target, "http://ignored")
				Expect(err).NotTo(HaveOccurred())
				Expect(baseURL).To(Equal(expected))
			},
			Entry("small", printer.TargetSmall, "http://small.local:3001"),
			Entry("medium", printer.TargetMedium, "http://medium.local:3002"),
		)

		It("should report an unconfigured named target", func() {
			_, err := registry.Resolve(printer.TargetLarge, "")

			var missing *printer.MissingTargetError
			Expect(errors.As(err, &missing)).To(BeTrue())
			Expect(missing.Target).To(Equal("large"))
		})

		Context("with the url target", func() {
			It("should use the override verbatim", func() {
				baseURL, err := registry.Resolve(printer.TargetURL, "not even a url")
				Expect(err).NotTo(HaveOccurred())
				Expect(baseURL).To(Equal("not even a url"))
			})

			It("should fail without an override", func() {
				_, err := registry.Resolve(printer.TargetURL, "")

				var missing *printer.MissingTargetError
				Expect(errors.As(err, &missing)).To(BeTrue())
				Expect(missing.Target).To(Equal("url"))
			})
		})

		It("should fall through to missing configuration for unknown targets", func() {
			for _, target := range []string{"huge", "", "SMALL", "toString"} {
				_, err := registry.Resolve(target, "http://override")

				var missing *printer.MissingTargetError
				Expect(errors.As(err, &missing)).To(BeTrue(), "target %q", target)
				Expect(missing.Target).To(Equal(target))
			}
		})

		It("should be safe for concurrent reads", func() {
			var wg sync.WaitGroup
			for i := 0; i < 100; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					defer GinkgoRecover()
					baseURL, err := registry.Resolve(printer.TargetSmall, "")
					Expect(err).NotTo(HaveOccurred())
					Expect(baseURL).To(Equal("http://small.local:3001"))
				}()
			}
			wg.Wait()
		})
	})

	Describe("Targets", func() {
		It("should list configured targets sorted by name", func() {
			Expect(registry.Targets()).To(Equal([]printer.Target{
				{Name: "medium", URL: "http://medium.local:3002"},
				{Name: "small", URL: "http://small.local:3001"},
			}))
		})

		It("should be empty when nothing is configured", func() {
			Expect(printer.NewRegistry("", "", "").Targets()).To(BeEmpty())
		})
	})

	Describe("MissingTargetError", func() {
		It("should name the target", func() {
			err := &printer.MissingTargetError{Target: "medium"}
			Expect(err.Error()).To(Equal(`no printer URL configured for target "medium"`))
		})
	})

	Describe("IsKnown", func() {
		It("should accept the four target names", func() {
			for _, target := range []string{"small", "medium", "large", "url"} {
				Expect(printer.IsKnown(target)).To(BeTrue())
			}
		})

		It("should reject anything else", func() {
			Expect(printer.IsKnown("")).To(BeFalse())
			Expect(printer.IsKnown("Large")).To(BeFalse())
		})
	})
})
