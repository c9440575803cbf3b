package wizard

import (
	"context"
	"fmt"
	"path"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"pitchdesk/internal/utils"
	"pitchdesk/pkg/types"
)

// UploadPipeline pushes pending binary selections to the blob store in a
// fixed phase order: cover, then supporting documents, then presentation.
// Phases never overlap; files within the supporting-documents phase upload
// concurrently.
type UploadPipeline struct {
	blobs  BlobStore
	logger *logrus.Logger
}

func NewUploadPipeline(blobs BlobStore, logger *logrus.Logger) *UploadPipeline {
	return &UploadPipeline{blobs: blobs, logger: logger}
}

// Run executes every phase that has pending items, reporting mode and
// progress transitions through report, then signals finalizing. A phase
// with nothing pending completes immediately. Any single file failure
// aborts the run; blobs uploaded by earlier completed phases are left in
// place.
func (p *UploadPipeline) Run(ctx context.Context, pitchID string, st *State, report func(UploadMode, float64)) (*Manifests, error) {
	manifests := new(Manifests)

	if err := p.uploadCover(ctx, pitchID, st, manifests, report); err != nil {
		return nil, err
	}
	if err := p.uploadDocuments(ctx, pitchID, st.DocumentFiles, manifests, report); err != nil {
		return nil, err
	}
	if err := p.uploadPresentation(ctx, pitchID, st.PresentationFile, manifests, report); err != nil {
		return nil, err
	}

	report(UploadFinalizing, 100)
	p.logger.WithFields(logrus.Fields{
		"pitch_id":  pitchID,
		"covers":    len(manifests.Cover),
		"documents": len(manifests.Documents),
		"decks":     len(manifests.Presentation),
	}).Debug("upload pipeline complete")
	return manifests, nil
}

func (p *UploadPipeline) uploadCover(ctx context.Context, pitchID string, st *State, manifests *Manifests, report func(UploadMode, float64)) error {
	// Cover-as-URL is the zero-upload case: the external video goes
	// straight onto the manifest.
	if st.CoverType == CoverTypeVideoURL && st.Fields.CoverVideoURL != "" {
		manifests.Cover = append(manifests.Cover, types.CoverAsset{
			ID:              utils.NanoID(),
			Kind:            types.AssetKindVideo,
			URL:             st.Fields.CoverVideoURL,
			ExternalStorage: true,
		})
		return nil
	}

	file := st.CoverFile
	if st.CoverType != CoverTypeFile || file == nil {
		return nil
	}

	report(UploadCover, 0)

	assetID := utils.NanoID()
	key := assetKey(pitchID, "cover", assetID, file.Name)
	url, err := p.blobs.Put(ctx, key, file.Data, file.ContentType, func(pct float64) {
		report(UploadCover, pct)
	})
	if err != nil {
		return fmt.Errorf("upload cover %q: %w", file.Name, err)
	}

	manifests.Cover = append(manifests.Cover, types.CoverAsset{
		ID:         assetID,
		Kind:       types.AssetKindImage,
		URL:        url,
		StorageKey: key,
		FileName:   file.Name,
		FileSize:   utils.HumanSize(file.Size),
	})
	return nil
}

func (p *UploadPipeline) uploadDocuments(ctx context.Context, pitchID string, files []*PendingFile, manifests *Manifests, report func(UploadMode, float64)) error {
	if len(files) == 0 {
		return nil
	}

	report(UploadSupportingDocs, 0)

	var (
		mu   sync.Mutex
		done int
	)
	entries := make([]types.DocumentAsset, len(files))

	group, groupCtx := errgroup.WithContext(ctx)
	for i, file := range files {
		group.Go(func() error {
			assetID := utils.NanoID()
			key := assetKey(pitchID, "documents", assetID, file.Name)
			url, err := p.blobs.Put(groupCtx, key, file.Data, file.ContentType, nil)
			if err != nil {
				return fmt.Errorf("upload document %q: %w", file.Name, err)
			}

			mu.Lock()
			entries[i] = types.DocumentAsset{
				ID:         assetID,
				URL:        url,
				StorageKey: key,
				FileName:   file.Name,
				FileSize:   utils.HumanSize(file.Size),
			}
			done++
			// Coarse progress for the multi-file phase: one increment per
			// completed file, not byte-accurate.
			report(UploadSupportingDocs, float64(done)*100/float64(len(files)))
			mu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}

	manifests.Documents = append(manifests.Documents, entries...)
	return nil
}

func (p *UploadPipeline) uploadPresentation(ctx context.Context, pitchID string, file *PendingFile, manifests *Manifests, report func(UploadMode, float64)) error {
	if file == nil {
		return nil
	}

	report(UploadPresentation, 0)

	assetID := utils.NanoID()
	key := assetKey(pitchID, "presentation", assetID, file.Name)
	url, err := p.blobs.Put(ctx, key, file.Data, file.ContentType, func(pct float64) {
		report(UploadPresentation, pct)
	})
	if err != nil {
		return fmt.Errorf("upload presentation %q: %w", file.Name, err)
	}

	manifests.Presentation = append(manifests.Presentation, types.DocumentAsset{
		ID:         assetID,
		URL:        url,
		StorageKey: key,
		FileName:   file.Name,
		FileSize:   utils.HumanSize(file.Size),
	})
	return nil
}

func assetKey(pitchID, kind, assetID, fileName string) string {
	return path.Join("pitches", pitchID, kind, assetID+"-"+fileName)
}
