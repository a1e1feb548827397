package common

import (
	"fmt"
	"math/rand"
	"time"
)

// GenerateTrxNo produces a short uppercase reference for transactions.
func GenerateTrxNo() string {
	const characters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	result := make([]byte, 7)
	for i := range result {
		result[i] = characters[r.Intn(len(characters))]
	}
	return string(result)
}

// AccountReference builds the account reference transmitted with an STK push
// so the provider statement can be traced back to a bar and tab.
func AccountReference(barID, tabID string) string {
	short := func(s string) string {
		if len(s) > 8 {
			return s[:8]
		}
		return s
	}
	return fmt.Sprintf("TAB-%s-%s", short(barID), short(tabID))
}
