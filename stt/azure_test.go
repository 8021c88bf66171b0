package stt

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAzureTestServer(t *testing.T, handler http.HandlerFunc) *AzureService {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewAzure(
		WithAzureBaseURL(server.URL),
		WithAzureAPIKey("test-key"),
	)
}

func TestAzureTranscribe(t *testing.T) {
	svc := newAzureTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, azureRecognizeEndpoint, r.URL.Path)
		assert.Equal(t, "en-US", r.URL.Query().Get("language"))
		assert.Equal(t, "detailed", r.URL.Query().Get("format"))
		assert.Equal(t, "test-key", r.Header.Get("Ocp-Apim-Subscription-Key"))
		assert.Equal(t, azureContentTypeWAV, r.Header.Get("Content-Type"))

		w.Write([]byte(`{"RecognitionStatus": "Success", "DisplayText": "I have a headache."}`))
	})

	text, err := svc.Transcribe(context.Background(), []byte("fake-wav"), DefaultTranscriptionConfig())
	require.NoError(t, err)
	assert.Equal(t, "I have a headache.", text)
}

func TestAzureTranscribeFallsBackToNBest(t *testing.T) {
	svc := newAzureTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"RecognitionStatus": "Success", "DisplayText": "", "NBest": [{"Display": "from nbest"}]}`))
	})

	text, err := svc.Transcribe(context.Background(), []byte("fake-wav"), DefaultTranscriptionConfig())
	require.NoError(t, err)
	assert.Equal(t, "from nbest", text)
}

func TestAzureTranscribeNoSpeech(t *testing.T) {
	svc := newAzureTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"RecognitionStatus": "InitialSilenceTimeout", "DisplayText": ""}`))
	})

	_, err := svc.Transcribe(context.Background(), []byte("fake-wav"), DefaultTranscriptionConfig())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoSpeech)

	var transErr *TranscriptionError
	require.True(t, errors.As(err, &transErr))
	assert.False(t, transErr.Retryable)
}

func TestAzureTranscribeEmptyAudio(t *testing.T) {
	svc := NewAzure(WithAzureAPIKey("test-key"))

	_, err := svc.Transcribe(context.Background(), nil, DefaultTranscriptionConfig())
	assert.ErrorIs(t, err, ErrEmptyAudio)
}

func TestAzureTranscribeWrapsPCM(t *testing.T) {
	var received []byte
	svc := newAzureTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		var err error
		received, err = io.ReadAll(r.Body)
		require.NoError(t, err)
		w.Write([]byte(`{"RecognitionStatus": "Success", "DisplayText": "ok"}`))
	})

	pcm := []byte{0x01, 0x02, 0x03, 0x04}
	cfg := DefaultTranscriptionConfig()
	cfg.Format = FormatPCM

	_, err := svc.Transcribe(context.Background(), pcm, cfg)
	require.NoError(t, err)

	// PCM arrives wrapped in a 44-byte WAV header.
	require.Len(t, received, 44+len(pcm))
	assert.Equal(t, "RIFF", string(received[0:4]))
	assert.Equal(t, "WAVE", string(received[8:12]))
	assert.Equal(t, pcm, received[44:])
}

func TestAzureTranscribeCustomLanguage(t *testing.T) {
	svc := newAzureTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "es-ES", r.URL.Query().Get("language"))
		w.Write([]byte(`{"RecognitionStatus": "Success", "DisplayText": "hola"}`))
	})

	cfg := DefaultTranscriptionConfig()
	cfg.Language = "es-ES"

	text, err := svc.Transcribe(context.Background(), []byte("fake-wav"), cfg)
	require.NoError(t, err)
	assert.Equal(t, "hola", text)
}

func TestAzureTranscribeRateLimited(t *testing.T) {
	svc := newAzureTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := svc.Transcribe(context.Background(), []byte("fake-wav"), DefaultTranscriptionConfig())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRateLimited)

	var transErr *TranscriptionError
	require.True(t, errors.As(err, &transErr))
	assert.True(t, transErr.Retryable)
}

func TestAzureTranscribeBadRequest(t *testing.T) {
	svc := newAzureTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	_, err := svc.Transcribe(context.Background(), []byte("fake-wav"), DefaultTranscriptionConfig())
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestAzureTestConnection(t *testing.T) {
	svc := newAzureTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		// Azure answers GET with method-not-allowed; still counts as alive.
		w.WriteHeader(http.StatusMethodNotAllowed)
	})
	assert.True(t, svc.TestConnection(context.Background()))
}

func TestAzureTestConnectionServerDown(t *testing.T) {
	svc := newAzureTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	assert.False(t, svc.TestConnection(context.Background()))
}

func TestAzureName(t *testing.T) {
	svc := NewAzure(WithAzureAPIKey("k"))
	assert.Equal(t, "azure-speech", svc.Name())
	assert.Contains(t, svc.SupportedFormats(), FormatWAV)
	assert.Contains(t, svc.SupportedFormats(), FormatPCM)
}
