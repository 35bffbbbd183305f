package generator

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"
	"github.com/yuzvak/checkout-service/internal/pkg/clock"
)

const (
	referencePrefix = "CART"
	suffixLength    = 9
	base36Alphabet  = "0123456789abcdefghijklmnopqrstuvwxyz"
)

type CodeGenerator struct {
	clock clock.Clock
}

func NewCodeGenerator(c clock.Clock) *CodeGenerator {
	if c == nil {
		c = clock.NewRealClock()
	}
	return &CodeGenerator{
		clock: c,
	}
}

// NewReference mints a checkout reference of the form CART-<unix millis>-<9 base36 chars>.
// Every submission attempt gets its own reference.
func (g *CodeGenerator) NewReference() string {
	return fmt.Sprintf("%s-%d-%s", referencePrefix, g.clock.Now().UnixMilli(), randomBase36(suffixLength))
}

func (g *CodeGenerator) NewSessionID() string {
	return uuid.NewString()
}

func randomBase36(n int) string {
	max := big.NewInt(int64(len(base36Alphabet)))
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand does not fail on supported platforms; fall back to a fixed digit.
			out[i] = base36Alphabet[0]
			continue
		}
		out[i] = base36Alphabet[idx.Int64()]
	}
	return string(out)
}
