package utils

import (
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGenerateOrderNumber_Format(t *testing.T) {
	pattern := regexp.MustCompile(fmt.Sprintf(`^%s-%d-\d{5}$`, OrderNumberPrefix, time.Now().Year()))

	for i := 0; i < 50; i++ {
		number := GenerateOrderNumber()
		assert.Regexp(t, pattern, number)
	}
}

func TestGenerateOrderNumber_Varies(t *testing.T) {
	// Suffixes are random 5-digit values; a run of 100 should not be constant.
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		seen[GenerateOrderNumber()] = true
	}
	assert.Greater(t, len(seen), 1)
}
