package eventstreamutils_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Sakibyash/infinoz-bot1/pkg/config"
	"github.com/Sakibyash/infinoz-bot1/pkg/eventstream/async"
	"github.com/Sakibyash/infinoz-bot1/pkg/eventstream/kafka"
	"github.com/Sakibyash/infinoz-bot1/pkg/eventstream/nop"
	eventstreamutils "github.com/Sakibyash/infinoz-bot1/pkg/eventstream/utils"
)

var _ = Describe("NewPublisher", func() {
	It("defaults to the nop publisher", func() {
		p, err := eventstreamutils.NewPublisher(config.EventsConfig{}, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(p).To(BeAssignableToTypeOf(&nop.Publisher{}))
	})

	It("wraps kafka in the async pool when enabled", func() {
		p, err := eventstreamutils.NewPublisher(config.EventsConfig{
			Provider: "kafka",
			Brokers:  "localhost:9092",
			Topic:    "memhandler.memories",
			Async:    true,
		}, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(p).To(BeAssignableToTypeOf(&async.Pool{}))
		Expect(p.Close()).To(Succeed())
	})

	It("builds a synchronous kafka publisher", func() {
		p, err := eventstreamutils.NewPublisher(config.EventsConfig{
			Provider: "kafka",
			Brokers:  "localhost:9092",
			Topic:    "memhandler.memories",
		}, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(p).To(BeAssignableToTypeOf(&kafka.Publisher{}))
		Expect(p.Close()).To(Succeed())
	})

	It("rejects unknown providers", func() {
		_, err := eventstreamutils.NewPublisher(config.EventsConfig{Provider: "nats"}, nil)
		Expect(err).To(MatchError(ContainSubstring("unsupported events provider")))
	})
})
