package errors

import (
	stderrors "errors"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DefaultClassification(t *testing.T) {
	tests := []struct {
		name          string
		code          ErrorCode
		wantRetryable bool
	}{
		{"network is retryable", CodeNetwork, true},
		{"timeout is retryable", CodeTimeout, true},
		{"rate limit is retryable", CodeRateLimit, true},
		{"unavailable is retryable", CodeUnavailable, true},
		{"not found is permanent", CodeNotFound, false},
		{"codec is permanent", CodeCodec, false},
		{"backend is permanent", CodeBackend, false},
		{"validation is permanent", CodeValidation, false},
		{"unlisted code is permanent", ErrorCode("SOMETHING_ELSE"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, "boom")
			require.Equal(t, tt.code, err.Code())
			require.Equal(t, tt.wantRetryable, err.Classification().IsRetryable())
			require.Equal(t, tt.wantRetryable, IsRetryable(err))
		})
	}
}

func TestNewf(t *testing.T) {
	err := Newf(CodeValidation, "unknown format %q", "xml")

	require.Equal(t, CodeValidation, err.Code())
	require.Equal(t, `unknown format "xml"`, err.Message())
	require.Equal(t, `[VALIDATION_ERROR] unknown format "xml"`, err.Error())
	require.Nil(t, err.Context())
	require.Nil(t, err.Unwrap())
}

func TestWrap(t *testing.T) {
	t.Run("nil error", func(t *testing.T) {
		require.Nil(t, Wrap(nil, CodeBackend, "write"))
		require.Nil(t, Wrapf(nil, CodeBackend, "write %s", "x"))
		require.Nil(t, WrapWithContext(nil, CodeBackend, "write", nil))
	})

	t.Run("standard error", func(t *testing.T) {
		cause := stderrors.New("disk full")
		err := Wrap(cause, CodeBackend, "write object")

		require.Equal(t, "[BACKEND_ERROR] write object: disk full", err.Error())
		require.True(t, stderrors.Is(err, cause))
		require.Equal(t, ClassificationPermanent, err.Classification())
	})

	t.Run("keeps classification of wrapped error", func(t *testing.T) {
		transient := New(CodeNetwork, "connection reset")
		err := Wrapf(transient, CodeBackend, "put %s", "a.csv")

		require.Equal(t, CodeBackend, err.Code())
		require.True(t, err.Classification().IsRetryable())
	})

	t.Run("with context copies map", func(t *testing.T) {
		ctx := map[string]interface{}{"format": "json"}
		err := WrapWithContext(stderrors.New("bad"), CodeCodec, "decode", ctx)
		ctx["format"] = "csv"

		require.Equal(t, "json", err.Context()["format"])
	})
}

func TestWithContext(t *testing.T) {
	err := New(CodeCodec, "decode")
	err = WithContext(err, "format", "parquet")
	err = WithContextMap(err, map[string]interface{}{"offset": int64(4), "format": "csv"})

	ctx := err.Context()
	require.Equal(t, "csv", ctx["format"])
	require.Equal(t, int64(4), ctx["offset"])
	require.Equal(t, CodeCodec, err.Code())

	ctx["offset"] = 99
	assert.Equal(t, int64(4), err.Context()["offset"], "context must be a copy")

	plain := WithContext(stderrors.New("raw"), "k", "v")
	require.Equal(t, CodeUnknown, plain.Code())
	require.Equal(t, "raw", plain.Message())

	require.Nil(t, WithContext(nil, "k", "v"))
}

func TestWithClassification(t *testing.T) {
	err := WithContext(New(CodeTimeout, "slow"), "attempts", 3)
	permanent := WithClassification(err, ClassificationPermanent)

	require.False(t, IsRetryable(permanent))
	require.Equal(t, CodeTimeout, permanent.Code())
	require.Equal(t, 3, permanent.Context()["attempts"])
	require.True(t, IsRetryable(err), "original must be unchanged")
	require.Nil(t, WithClassification(nil, ClassificationPermanent))
}

func TestPredicates(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		notFound   bool
		codec      bool
		backend    bool
		validation bool
	}{
		{name: "nil"},
		{name: "plain", err: stderrors.New("x")},
		{name: "not found", err: New(CodeNotFound, "x"), notFound: true},
		{name: "codec", err: New(CodeCodec, "x"), codec: true},
		{name: "backend", err: Wrap(New(CodeNetwork, "x"), CodeBackend, "y"), backend: true},
		{name: "validation", err: New(CodeValidation, "x"), validation: true},
		{name: "transient is not backend", err: New(CodeNetwork, "x")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.notFound, IsNotFound(tt.err))
			assert.Equal(t, tt.codec, IsCodec(tt.err))
			assert.Equal(t, tt.backend, IsBackend(tt.err))
			assert.Equal(t, tt.validation, IsValidation(tt.err))
		})
	}
}

func TestGetCode_Chain(t *testing.T) {
	inner := New(CodeNotFound, "missing")
	outer := Wrap(inner, CodeBackend, "read")

	require.Equal(t, CodeBackend, GetCode(outer))
	require.True(t, Is(outer, inner))

	var providerErr ProviderError
	require.True(t, As(outer, &providerErr))
	require.Equal(t, CodeUnknown, GetCode(nil))
	require.Equal(t, ClassificationPermanent, GetClassification(stderrors.New("x")))
}

func TestToJSON(t *testing.T) {
	require.Nil(t, ToJSON(nil))

	err := WithContext(New(CodeCodec, "invalid parquet"), "format", "parquet")
	resp := ToJSON(Wrap(stderrors.New("secret path /etc"), CodeBackend, "read failed"))
	require.Equal(t, "BACKEND_ERROR", resp.Code)
	require.Equal(t, "read failed", resp.Message)

	resp = ToJSON(err)
	require.Equal(t, "CODEC_ERROR", resp.Code)
	require.Equal(t, "PERMANENT", resp.Classification)
	require.Equal(t, "parquet", resp.Context["format"])

	resp = ToJSON(stderrors.New("plain"))
	require.Equal(t, "UNKNOWN", resp.Code)
	require.Equal(t, "plain", resp.Message)
}

func TestMarshalJSON(t *testing.T) {
	err := WithContext(New(CodeNotFound, "no object"), "location", "data/a.csv")

	data, mErr := json.Marshal(err)
	require.NoError(t, mErr)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(data, &resp))
	require.Equal(t, "NOT_FOUND", resp.Code)
	require.Equal(t, "no object", resp.Message)
	require.Equal(t, "data/a.csv", resp.Context["location"])
}
