package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateTrxNo(t *testing.T) {
	trxNo := GenerateTrxNo()
	assert.Len(t, trxNo, 7)

	for _, ch := range trxNo {
		valid := (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9')
		assert.True(t, valid, "unexpected character %q", ch)
	}
}

func TestAccountReference(t *testing.T) {
	ref := AccountReference("11111111-2222-3333-4444-555555555555", "aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee")
	assert.Equal(t, "TAB-11111111-aaaaaaaa", ref)

	short := AccountReference("b1", "t1")
	assert.Equal(t, "TAB-b1-t1", short)
}

func TestParsePagination(t *testing.T) {
	page, limit := ParsePagination("", "")
	assert.Equal(t, 1, page)
	assert.Equal(t, 50, limit)

	page, limit = ParsePagination("3", "20")
	assert.Equal(t, 3, page)
	assert.Equal(t, 20, limit)

	_, limit = ParsePagination("1", "9999")
	assert.Equal(t, 200, limit)

	p := Pagination{Page: 3, Limit: 20}
	assert.Equal(t, 40, p.Offset())
}
