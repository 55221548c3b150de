package myrandom

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
)

//go:generate mockgen -source=random.go -package myrandom -destination random_stringer_mock.go RandomStringer
type RandomStringer interface {
	// Create returns count bytes of crypto-random data, url-safe base64 encoded without padding.
	Create(count int) (string, error)
}

type randomStringer struct {
	reader io.Reader
}

func NewRandomStringer() RandomStringer {
	return &randomStringer{
		reader: rand.Reader,
	}
}

func (s randomStringer) Create(count int) (string, error) {
	buf := make([]byte, count)

	_, err := io.ReadFull(s.reader, buf)
	if err != nil {
		return "", fmt.Errorf("could not generate random %d bytes: %w", count, err)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}
