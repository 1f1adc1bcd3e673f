package tests

import (
	"fmt"
	"math/rand"
	"time"
)

type Randomizer struct {
	Price   func() int64
	Address func() string
}

func NewRandomizer() Randomizer {
	random := rand.New(rand.NewSource(time.Now().Unix())) //nolint:gosec // for tests

	return Randomizer{
		Price: func() int64 { return 1 + random.Int63n(1_000_000_000) },
		Address: func() string {
			buf := make([]byte, 20) //nolint:mnd // address width
			random.Read(buf)
			return fmt.Sprintf("0x%x", buf)
		},
	}
}
