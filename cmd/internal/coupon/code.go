package coupon

import (
	"crypto/rand"
	"math/big"
	"strings"
)

const (
	codeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeSuffix  = 10
	codePrefix  = "SF-"
)

var codeCharsetLen = big.NewInt(int64(len(codeCharset)))

// GenerateCode builds a fresh vendor-side coupon code:
// "SF-<TIER>-" plus ten uniformly random characters from the charset.
func GenerateCode(subscriptionName string) (string, error) {
	var sb strings.Builder
	sb.WriteString(codePrefix)
	sb.WriteString(strings.ToUpper(strings.TrimSpace(subscriptionName)))
	sb.WriteByte('-')
	for i := 0; i < codeSuffix; i++ {
		n, err := rand.Int(rand.Reader, codeCharsetLen)
		if err != nil {
			return "", err
		}
		sb.WriteByte(codeCharset[n.Int64()])
	}
	return sb.String(), nil
}
