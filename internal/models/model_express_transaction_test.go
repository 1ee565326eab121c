package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRedactCredentials_MasksPassword(t *testing.T) {
	raw := "USER=merchant_api1.example.com&PWD=s3cr3t-p4ss&SIGNATURE=AbCdEf&METHOD=SetExpressCheckout"
	got := RedactCredentials(raw)
	require.Equal(t, "USER=merchant_api1.example.com&PWD=XXXXXX&SIGNATURE=AbCdEf&METHOD=SetExpressCheckout", got)
	require.NotContains(t, got, "s3cr3t")
}

func TestRedactCredentials_NoCredentials(t *testing.T) {
	raw := "METHOD=GetExpressCheckoutDetails&TOKEN=EC-123"
	require.Equal(t, raw, RedactCredentials(raw))
}

func TestExpressTransaction_BeforeCreateRedacts(t *testing.T) {
	txn := &ExpressTransaction{RawRequest: "PWD=hunter2&METHOD=DoExpressCheckoutPayment"}
	require.NoError(t, txn.BeforeCreate(nil))
	require.Equal(t, "PWD=XXXXXX&METHOD=DoExpressCheckoutPayment", txn.RawRequest)
}

func TestExpressTransaction_IsSuccessful(t *testing.T) {
	require.True(t, (&ExpressTransaction{Ack: AckSuccess}).IsSuccessful())
	require.True(t, (&ExpressTransaction{Ack: AckSuccessWithWarning}).IsSuccessful())
	require.False(t, (&ExpressTransaction{Ack: AckFailure}).IsSuccessful())
	require.False(t, (&ExpressTransaction{Ack: ""}).IsSuccessful())
}
