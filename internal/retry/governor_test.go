package retry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/receipt-classifier/internal/scanning"
)

// fakeTimer fires immediately and records every requested wait.
type fakeTimer struct {
	waits *[]time.Duration
	c     chan time.Time
}

func (t *fakeTimer) Start(d time.Duration) {
	*t.waits = append(*t.waits, d)
	t.c <- time.Time{}
}

func (t *fakeTimer) Stop() {}

func (t *fakeTimer) C() <-chan time.Time { return t.c }

var _ = Describe("Governor", func() {
	var (
		governor *Governor
		waits    []time.Duration
		results  []error
		calls    int
		attempts int
		err      error
		ctx      context.Context
	)

	transient := &scanning.TransportError{Provider: "openai", StatusCode: http.StatusBadGateway, Body: "bad gateway"}
	rateLimited := &scanning.TransportError{Provider: "openai", StatusCode: http.StatusTooManyRequests, Body: "slow down"}
	formatErr := &scanning.FormatError{Reason: "no JSON found in response"}

	BeforeEach(func() {
		waits = nil
		results = nil
		calls = 0
		ctx = context.Background()
		governor = NewGovernor(DefaultPolicy(), slog.New(slog.NewTextHandler(io.Discard, nil))).
			WithTimer(func() backoff.Timer {
				return &fakeTimer{waits: &waits, c: make(chan time.Time, 1)}
			})
	})

	JustBeforeEach(func() {
		attempts, err = governor.Do(ctx, func(context.Context) error {
			defer func() { calls++ }()
			if calls < len(results) {
				return results[calls]
			}
			return nil
		})
	})

	When("the first attempt succeeds", func() {
		It("does not wait", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(attempts).To(Equal(1))
			Expect(waits).To(BeEmpty())
		})
	})

	When("two transient failures precede success", func() {
		BeforeEach(func() {
			results = []error{transient, transient, nil}
		})

		It("backs off exponentially and succeeds on the third attempt", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(attempts).To(Equal(3))
			Expect(waits).To(Equal([]time.Duration{time.Second, 2 * time.Second}))
		})
	})

	When("the oracle is rate limiting", func() {
		BeforeEach(func() {
			results = []error{rateLimited, nil}
		})

		It("waits the rate limit interval", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(attempts).To(Equal(2))
			Expect(waits).To(Equal([]time.Duration{60 * time.Second}))
		})
	})

	When("rate limits and transient failures mix", func() {
		BeforeEach(func() {
			results = []error{transient, rateLimited, nil}
		})

		It("counts rate limited attempts toward the ceiling", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(attempts).To(Equal(3))
			Expect(waits).To(Equal([]time.Duration{time.Second, 60 * time.Second}))
		})
	})

	When("every attempt fails", func() {
		BeforeEach(func() {
			results = []error{transient, transient, transient, nil}
		})

		It("gives up after the ceiling without a final wait", func() {
			Expect(attempts).To(Equal(3))
			Expect(calls).To(Equal(3))
			Expect(waits).To(HaveLen(2))
			Expect(errors.Is(err, ErrExhausted)).To(BeTrue())
			Expect(errors.Is(err, scanning.ErrOracleTransport)).To(BeTrue())
		})
	})

	When("the oracle answers with an unusable payload", func() {
		BeforeEach(func() {
			results = []error{formatErr, nil}
		})

		It("does not retry", func() {
			Expect(attempts).To(Equal(1))
			Expect(waits).To(BeEmpty())
			Expect(errors.Is(err, scanning.ErrOracleFormat)).To(BeTrue())
			Expect(errors.Is(err, ErrExhausted)).To(BeFalse())
		})
	})

	When("the image cannot be decoded", func() {
		BeforeEach(func() {
			results = []error{&scanning.ImageError{ContentType: "image/png", Err: errors.New("unknown format")}, nil}
		})

		It("does not retry", func() {
			Expect(attempts).To(Equal(1))
			Expect(waits).To(BeEmpty())
			Expect(errors.Is(err, scanning.ErrUnreadableImage)).To(BeTrue())
			Expect(errors.Is(err, ErrExhausted)).To(BeFalse())
		})
	})

	When("the policy allows a single attempt", func() {
		BeforeEach(func() {
			governor = NewGovernor(Policy{MaxAttempts: 1, BaseDelay: time.Second}, nil).
				WithTimer(func() backoff.Timer {
					return &fakeTimer{waits: &waits, c: make(chan time.Time, 1)}
				})
			results = []error{rateLimited}
		})

		It("fails without waiting", func() {
			Expect(attempts).To(Equal(1))
			Expect(waits).To(BeEmpty())
			Expect(errors.Is(err, ErrExhausted)).To(BeTrue())
		})
	})

	When("the context is already cancelled", func() {
		BeforeEach(func() {
			cancelled, cancel := context.WithCancel(context.Background())
			cancel()
			ctx = cancelled
			results = []error{transient, nil}
		})

		It("stops with the context error", func() {
			Expect(errors.Is(err, context.Canceled)).To(BeTrue())
			Expect(attempts).To(Equal(1))
		})
	})

	It("exposes its policy", func() {
		Expect(governor.Policy()).To(Equal(DefaultPolicy()))
	})
})

var _ = Describe("Pacer", func() {
	It("does nothing when disabled", func() {
		p := NewPacer(0)
		start := time.Now()
		for i := 0; i < 5; i++ {
			Expect(p.Wait(context.Background())).To(Succeed())
		}
		Expect(time.Since(start)).To(BeNumerically("<", 50*time.Millisecond))
	})

	It("tolerates a nil pacer", func() {
		var p *Pacer
		Expect(p.Wait(context.Background())).To(Succeed())
	})

	It("spaces out submissions", func() {
		p := NewPacer(40 * time.Millisecond)
		start := time.Now()
		for i := 0; i < 3; i++ {
			Expect(p.Wait(context.Background())).To(Succeed())
		}
		Expect(time.Since(start)).To(BeNumerically(">=", 70*time.Millisecond))
	})

	It("returns when the context is cancelled", func() {
		p := NewPacer(time.Hour)
		Expect(p.Wait(context.Background())).To(Succeed())

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		Expect(p.Wait(ctx)).To(HaveOccurred())
	})
})
