package processor

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/lucaslcw/order-pipeline/common/api"
	"github.com/lucaslcw/order-pipeline/common/money"
)

const (
	baseDelay          = 200 * time.Millisecond
	maxJitter          = 500 * time.Millisecond
	gatewayFailureRate = 0.03

	// A card number ending in 0000 is always declined, so declines can be
	// exercised deterministically in staging.
	declinedCardSuffix = "0000"

	declinedByIssuer  = "card declined by issuer"
	insufficientFunds = "insufficient funds"
)

var gatewayFailures = []string{
	"gateway timeout",
	"service temporarily unavailable",
	"merchant configuration error",
	"network error contacting acquirer",
}

// Approval rates drop as the charged amount grows.
var (
	tierHigh   = money.FromInt(10000)
	tierMedium = money.FromInt(1000)
)

// Simulator stands in for a card acquirer. Calls take a randomized delay,
// a small fraction fail at the gateway, and the rest approve with a
// probability keyed to the order value.
type Simulator struct {
	mu    sync.Mutex
	rng   *rand.Rand
	sleep func(ctx context.Context, d time.Duration) error
}

func NewSimulator() *Simulator {
	return newSimulator(rand.NewSource(time.Now().UnixNano()), sleepContext)
}

func newSimulator(src rand.Source, sleep func(context.Context, time.Duration) error) *Simulator {
	return &Simulator{
		rng:   rand.New(src),
		sleep: sleep,
	}
}

// Charge simulates one gateway round trip.
func (s *Simulator) Charge(ctx context.Context, req *api.ProcessTransaction) (*Result, error) {
	start := time.Now()

	s.mu.Lock()
	delay := baseDelay + time.Duration(s.rng.Int63n(int64(maxJitter)))
	failRoll := s.rng.Float64()
	approveRoll := s.rng.Float64()
	failureMsg := gatewayFailures[s.rng.Intn(len(gatewayFailures))]
	authCode := fmt.Sprintf("AUTH-%06d", s.rng.Intn(1000000))
	s.mu.Unlock()

	if err := s.sleep(ctx, delay); err != nil {
		return nil, err
	}

	if failRoll < gatewayFailureRate {
		return nil, &api.GatewayError{Message: failureMsg}
	}

	duration := time.Since(start)

	pan := strings.ReplaceAll(req.PaymentData.CardNumber, " ", "")
	if strings.HasSuffix(pan, declinedCardSuffix) {
		return &Result{
			Status:        api.PaymentDeclined,
			FailureReason: declinedByIssuer,
			Duration:      duration,
		}, nil
	}

	if approveRoll < approvalRate(req.OrderTotalValue) {
		return &Result{
			Status:   api.PaymentApproved,
			AuthCode: authCode,
			Duration: duration,
		}, nil
	}

	return &Result{
		Status:        api.PaymentDeclined,
		FailureReason: insufficientFunds,
		Duration:      duration,
	}, nil
}

func approvalRate(amount money.Amount) float64 {
	switch {
	case amount.GTE(tierHigh):
		return 0.75
	case amount.GTE(tierMedium):
		return 0.85
	default:
		return 0.95
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
