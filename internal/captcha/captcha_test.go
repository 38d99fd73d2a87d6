// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package captcha

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerify_DisabledWhenNoSecret(t *testing.T) {
	v := New(http.DefaultClient, "")
	result := v.Verify(context.Background(), "", "1.2.3.4")
	assert.True(t, result.Success)
}

func TestVerify_MissingTokenFailsFast(t *testing.T) {
	v := New(http.DefaultClient, "secret")
	result := v.Verify(context.Background(), "", "1.2.3.4")
	assert.False(t, result.Success)
	assert.Contains(t, result.ErrorCodes, "missing-input-response")
}

func TestVerify_SuccessResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": true}`))
	}))
	defer srv.Close()

	v := New(srv.Client(), "secret")
	v.url = srv.URL

	result := v.Verify(context.Background(), "tok", "1.2.3.4")
	assert.True(t, result.Success)
}

func TestVerify_FailureResponseReturnsErrorCodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": false, "error-codes": ["invalid-input-response"]}`))
	}))
	defer srv.Close()

	v := New(srv.Client(), "secret")
	v.url = srv.URL

	result := v.Verify(context.Background(), "bad-tok", "1.2.3.4")
	assert.False(t, result.Success)
	assert.Equal(t, []string{"invalid-input-response"}, result.ErrorCodes)
}
