package wizard

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"pitchdesk/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type progressRecorder struct {
	mu     sync.Mutex
	events []UploadMode
}

func (r *progressRecorder) report(mode UploadMode, pct float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 || r.events[len(r.events)-1] != mode {
		r.events = append(r.events, mode)
	}
}

func (r *progressRecorder) modes() []UploadMode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]UploadMode(nil), r.events...)
}

func fullState() *State {
	return &State{
		CoverType: CoverTypeFile,
		CoverFile: &PendingFile{Name: "cover.png", Size: 2048, ContentType: "image/png", Data: []byte("png")},
		DocumentFiles: []*PendingFile{
			{Name: "financials.xlsx", Size: 4096, Data: []byte("xlsx")},
			{Name: "captable.pdf", Size: 1024, Data: []byte("pdf")},
		},
		PresentationFile: &PendingFile{Name: "deck.pdf", Size: 8192, Data: []byte("deck")},
	}
}

func TestUploadPipelinePhaseOrder(t *testing.T) {
	blobs := &fakeBlobStore{}
	recorder := &progressRecorder{}
	pipeline := NewUploadPipeline(blobs, testLogger())

	manifests, err := pipeline.Run(context.Background(), "p1", fullState(), recorder.report)
	require.NoError(t, err)

	assert.Equal(t,
		[]UploadMode{UploadCover, UploadSupportingDocs, UploadPresentation, UploadFinalizing},
		recorder.modes(),
	)

	assert.Len(t, manifests.Cover, 1)
	assert.Len(t, manifests.Documents, 2)
	assert.Len(t, manifests.Presentation, 1)
	assert.Len(t, blobs.storedKeys(), 4)
}

func TestUploadPipelineKeyShape(t *testing.T) {
	blobs := &fakeBlobStore{}
	pipeline := NewUploadPipeline(blobs, testLogger())

	st := &State{
		CoverType: CoverTypeFile,
		CoverFile: &PendingFile{Name: "cover.png", Data: []byte("png")},
	}
	manifests, err := pipeline.Run(context.Background(), "p1", st, func(UploadMode, float64) {})
	require.NoError(t, err)

	keys := blobs.storedKeys()
	require.Len(t, keys, 1)
	assert.True(t, strings.HasPrefix(keys[0], "pitches/p1/cover/"))
	assert.True(t, strings.HasSuffix(keys[0], "-cover.png"))

	require.Len(t, manifests.Cover, 1)
	entry := manifests.Cover[0]
	assert.Equal(t, types.AssetKindImage, entry.Kind)
	assert.Equal(t, keys[0], entry.StorageKey)
	assert.Equal(t, "https://blobs.test/"+keys[0], entry.URL)
	assert.False(t, entry.ExternalStorage)
}

func TestUploadPipelineVideoURLSkipsBlobStore(t *testing.T) {
	blobs := &fakeBlobStore{}
	pipeline := NewUploadPipeline(blobs, testLogger())

	st := &State{CoverType: CoverTypeVideoURL}
	st.Fields.CoverVideoURL = "https://vimeo.com/123"

	manifests, err := pipeline.Run(context.Background(), "p1", st, func(UploadMode, float64) {})
	require.NoError(t, err)

	assert.Empty(t, blobs.storedKeys())
	require.Len(t, manifests.Cover, 1)
	entry := manifests.Cover[0]
	assert.Equal(t, types.AssetKindVideo, entry.Kind)
	assert.Equal(t, "https://vimeo.com/123", entry.URL)
	assert.True(t, entry.ExternalStorage)
	assert.Empty(t, entry.StorageKey)
}

func TestUploadPipelineNothingPending(t *testing.T) {
	blobs := &fakeBlobStore{}
	recorder := &progressRecorder{}
	pipeline := NewUploadPipeline(blobs, testLogger())

	manifests, err := pipeline.Run(context.Background(), "p1", &State{}, recorder.report)
	require.NoError(t, err)

	assert.Empty(t, blobs.storedKeys())
	assert.Empty(t, manifests.Cover)
	assert.Empty(t, manifests.Documents)
	assert.Empty(t, manifests.Presentation)
	assert.Equal(t, []UploadMode{UploadFinalizing}, recorder.modes())
}

func TestUploadPipelineDocumentsWaitForCover(t *testing.T) {
	blobs := &fakeBlobStore{release: make(chan struct{}), holdSubstr: "cover"}
	pipeline := NewUploadPipeline(blobs, testLogger())

	done := make(chan error, 1)
	go func() {
		_, err := pipeline.Run(context.Background(), "p1", fullState(), func(UploadMode, float64) {})
		done <- err
	}()

	// While the cover upload is held open no later phase may start, even
	// though the document phase would run its files concurrently.
	assert.Never(t, func() bool {
		return len(blobs.storedKeys()) > 0
	}, 200*time.Millisecond, 10*time.Millisecond)

	close(blobs.release)
	require.NoError(t, <-done)

	keys := blobs.storedKeys()
	require.Len(t, keys, 4)
	assert.Contains(t, keys[0], "/cover/")
}

func TestUploadPipelineFailFast(t *testing.T) {
	blobs := &fakeBlobStore{failSubstr: "documents"}
	pipeline := NewUploadPipeline(blobs, testLogger())

	manifests, err := pipeline.Run(context.Background(), "p1", fullState(), func(UploadMode, float64) {})
	require.Error(t, err)
	assert.Nil(t, manifests)

	// The cover phase completed before the failure; the presentation phase
	// never started.
	for _, key := range blobs.storedKeys() {
		assert.NotContains(t, key, "presentation")
	}
}

func TestUploadPipelineDocumentProgressReachesFull(t *testing.T) {
	blobs := &fakeBlobStore{}
	pipeline := NewUploadPipeline(blobs, testLogger())

	var (
		mu      sync.Mutex
		lastDoc float64
	)
	st := &State{DocumentFiles: []*PendingFile{
		{Name: "a.pdf", Data: []byte("a")},
		{Name: "b.pdf", Data: []byte("b")},
		{Name: "c.pdf", Data: []byte("c")},
	}}

	_, err := pipeline.Run(context.Background(), "p1", st, func(mode UploadMode, pct float64) {
		if mode == UploadSupportingDocs {
			mu.Lock()
			if pct > lastDoc {
				lastDoc = pct
			}
			mu.Unlock()
		}
	})
	require.NoError(t, err)

	assert.InDelta(t, 100, lastDoc, 0.001)
}
