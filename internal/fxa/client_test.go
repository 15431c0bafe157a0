package fxa

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fxawebapp/fxa-front/internal/autherrors"
	"github.com/fxawebapp/fxa-front/internal/channel"
)

func authServer(t *testing.T, routes map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	for path, fn := range routes {
		mux.HandleFunc(path, fn)
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func writeRemoteError(w http.ResponseWriter, status, errno int, message string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"code":    status,
		"errno":   errno,
		"message": message,
	})
}

func TestSignInSuccess(t *testing.T) {
	var gotBody map[string]any
	srv := authServer(t, map[string]http.HandlerFunc{
		"/v1/account/login": func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
			json.NewEncoder(w).Encode(map[string]any{
				"uid":          "feed000000000000000000000000beef",
				"sessionToken": "deadbeef",
				"verified":     true,
			})
		},
	})

	interTab := channel.NewInterTabChannel()
	var broadcasts atomic.Int32
	interTab.OnCommand(channel.SignedInNotification, func(env channel.Envelope) {
		broadcasts.Add(1)
		assert.Equal(t, "user@example.com", env.Data["email"])
	})

	client := New(srv.URL, interTab)
	result, err := client.SignIn(context.Background(), "user@example.com", "hunter22")
	require.NoError(t, err)

	assert.Equal(t, "feed000000000000000000000000beef", result.UID)
	assert.Equal(t, "deadbeef", result.SessionToken)
	assert.True(t, result.Verified)
	assert.NotEmpty(t, result.UnwrapBKey)
	assert.Equal(t, int32(1), broadcasts.Load())

	// authPW is derived locally; the raw password never crosses the wire.
	assert.NotContains(t, gotBody, "password")
	assert.NotEmpty(t, gotBody["authPW"])
}

func TestSignInIncorrectPassword(t *testing.T) {
	srv := authServer(t, map[string]http.HandlerFunc{
		"/v1/account/login": func(w http.ResponseWriter, r *http.Request) {
			writeRemoteError(w, http.StatusBadRequest, 103, "Incorrect password")
		},
	})

	client := New(srv.URL, nil)
	_, err := client.SignIn(context.Background(), "user@example.com", "wrong")
	require.ErrorIs(t, err, autherrors.ErrIncorrectPassword)
}

func TestSignUpReturnsUnwrapBKey(t *testing.T) {
	srv := authServer(t, map[string]http.HandlerFunc{
		"/v1/account/create": func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{
				"uid":          "0000000000000000000000000000cafe",
				"sessionToken": "st",
				"verified":     false,
			})
		},
	})

	client := New(srv.URL, nil)
	result, err := client.SignUp(context.Background(), "new@example.com", "s3cret", "resume-token")
	require.NoError(t, err)
	assert.False(t, result.Verified)
	assert.Len(t, result.UnwrapBKey, 64)
}

func TestSignUpAccountAlreadyExists(t *testing.T) {
	srv := authServer(t, map[string]http.HandlerFunc{
		"/v1/account/create": func(w http.ResponseWriter, r *http.Request) {
			writeRemoteError(w, http.StatusBadRequest, 101, "Account already exists")
		},
	})

	client := New(srv.URL, nil)
	_, err := client.SignUp(context.Background(), "taken@example.com", "pw", "")
	require.ErrorIs(t, err, autherrors.ErrAccountAlreadyExists)
}

func TestSignUpResendCap(t *testing.T) {
	var calls atomic.Int32
	srv := authServer(t, map[string]http.HandlerFunc{
		"/v1/recovery_email/resend_code": func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.Write([]byte("{}"))
		},
	})

	client := New(srv.URL, nil)
	for i := 0; i < MaxResendTries+3; i++ {
		require.NoError(t, client.SignUpResend(context.Background(), "st", ""))
	}
	// Past the cap the client reports success without hitting the server.
	assert.Equal(t, int32(MaxResendTries), calls.Load())
}

func TestPasswordForgotResendCap(t *testing.T) {
	var calls atomic.Int32
	srv := authServer(t, map[string]http.HandlerFunc{
		"/v1/password/forgot/resend_code": func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.Write([]byte("{}"))
		},
	})

	client := New(srv.URL, nil)
	for i := 0; i < MaxResendTries+2; i++ {
		require.NoError(t, client.PasswordForgotResend(context.Background(), "u@e.com", "pft", ""))
	}
	assert.Equal(t, int32(MaxResendTries), calls.Load())
}

func TestRecoveryEmailStatus(t *testing.T) {
	verified := false
	srv := authServer(t, map[string]http.HandlerFunc{
		"/v1/recovery_email/status": func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{"verified": verified})
		},
	})

	client := New(srv.URL, nil)

	ok, err := client.RecoveryEmailStatus(context.Background(), "st")
	require.NoError(t, err)
	assert.False(t, ok)

	verified = true
	ok, err = client.RecoveryEmailStatus(context.Background(), "st")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSessionStatus(t *testing.T) {
	valid := true
	srv := authServer(t, map[string]http.HandlerFunc{
		"/v1/session/status": func(w http.ResponseWriter, r *http.Request) {
			if !valid {
				writeRemoteError(w, http.StatusUnauthorized, 110, "Invalid token")
				return
			}
			w.Write([]byte("{}"))
		},
	})

	client := New(srv.URL, nil)

	ok, err := client.SessionStatus(context.Background(), "st")
	require.NoError(t, err)
	assert.True(t, ok)

	// An invalid token means "not signed in", not a hard failure.
	valid = false
	ok, err = client.SessionStatus(context.Background(), "st")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPasswordChangeDerivesBothCredentials(t *testing.T) {
	var gotBody map[string]any
	srv := authServer(t, map[string]http.HandlerFunc{
		"/v1/password/change": func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
			json.NewEncoder(w).Encode(map[string]any{
				"uid":          "00000000000000000000000000000001",
				"sessionToken": "new-st",
				"verified":     true,
			})
		},
	})

	client := New(srv.URL, nil)
	result, err := client.PasswordChange(context.Background(), "u@e.com", "old", "new")
	require.NoError(t, err)

	assert.NotEqual(t, gotBody["oldAuthPW"], gotBody["newAuthPW"])
	assert.Equal(t, "new-st", result.SessionToken)
	assert.Len(t, result.UnwrapBKey, 64)
}

func TestVerifyCodeInvalid(t *testing.T) {
	srv := authServer(t, map[string]http.HandlerFunc{
		"/v1/recovery_email/verify_code": func(w http.ResponseWriter, r *http.Request) {
			writeRemoteError(w, http.StatusBadRequest, 105, "Invalid verification code")
		},
	})

	client := New(srv.URL, nil)
	err := client.VerifyCode(context.Background(), "00000000000000000000000000000001", "000000")
	require.ErrorIs(t, err, autherrors.ErrInvalidVerification)
}

func TestDeriveCredentialsDeterministic(t *testing.T) {
	pw1, key1, err := DeriveCredentials("u@e.com", "password")
	require.NoError(t, err)
	pw2, key2, err := DeriveCredentials("u@e.com", "password")
	require.NoError(t, err)
	assert.Equal(t, pw1, pw2)
	assert.Equal(t, key1, key2)

	// Different email salts differently.
	pw3, _, err := DeriveCredentials("other@e.com", "password")
	require.NoError(t, err)
	assert.NotEqual(t, pw1, pw3)
}
