package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewMoney(t *testing.T) {
	assert.Equal(t, Money(1250), NewMoney(12.50))
	assert.Equal(t, Money(0), NewMoney(0))
	assert.Equal(t, Money(100), NewMoney(1))
}

func TestMoney_Mul(t *testing.T) {
	assert.Equal(t, Money(3750), NewMoney(12.50).Mul(3))
	assert.Equal(t, Money(0), NewMoney(12.50).Mul(0))
}

func TestMoney_Percent(t *testing.T) {
	tests := []struct {
		name string
		m    Money
		pct  int
		want Money
	}{
		{"full refund", NewMoney(100), 100, NewMoney(100)},
		{"half refund", NewMoney(100), 50, NewMoney(50)},
		{"zero refund", NewMoney(100), 0, Money(0)},
		{"rounds to nearest minor unit", Money(333), 50, Money(167)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.m.Percent(tt.pct))
		})
	}
}

func TestMoney_String(t *testing.T) {
	assert.Equal(t, "12.50", NewMoney(12.50).String())
	assert.Equal(t, "0.00", Money(0).String())
}
