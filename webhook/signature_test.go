package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSigner_SignAndVerify(t *testing.T) {
	signer := NewSigner("whsec_test")
	body := []byte(`{"id":"evt_1","type":"client.created"}`)

	sig := signer.Sign(body)
	assert.Len(t, sig, 64) // hex SHA-256
	assert.True(t, signer.Verify(body, sig))
}

func TestSigner_MatchesReferenceHMAC(t *testing.T) {
	secret := "whsec_test"
	body := []byte(`{"hello":"world"}`)

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	want := hex.EncodeToString(mac.Sum(nil))

	assert.Equal(t, want, NewSigner(secret).Sign(body))
}

func TestSigner_RejectsTamperedBody(t *testing.T) {
	signer := NewSigner("whsec_test")
	sig := signer.Sign([]byte(`{"amount":100}`))
	assert.False(t, signer.Verify([]byte(`{"amount":999}`), sig))
}

func TestSigner_RejectsWrongSecret(t *testing.T) {
	body := []byte(`{"id":"evt_1"}`)
	sig := NewSigner("secret-a").Sign(body)
	assert.False(t, NewSigner("secret-b").Verify(body, sig))
}

func TestSigner_RejectsMalformedSignature(t *testing.T) {
	signer := NewSigner("whsec_test")
	assert.False(t, signer.Verify([]byte(`{}`), "not-hex!"))
	assert.False(t, signer.Verify([]byte(`{}`), ""))
}

func TestSigner_Wipe(t *testing.T) {
	signer := NewSigner("whsec_test")
	signer.Wipe()
	for _, b := range signer.secret {
		assert.Zero(t, b)
	}

	var nilSigner *Signer
	nilSigner.Wipe() // must not panic
}
