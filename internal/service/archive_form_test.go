package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Karimk94/edms-archive-gateway/internal/dto"
	"github.com/Karimk94/edms-archive-gateway/internal/models"
	appErrors "github.com/Karimk94/edms-archive-gateway/pkg/errors"
)

const (
	statusActiveID   = "st-active"
	statusInactiveID = "st-inactive"
	typeCardID       = "dt-card"
	typeWarrantID    = "dt-warrant"
	typeMiscID       = "dt-misc"
	typePassportID   = "dt-passport"
)

func testCatalogs() models.Catalogs {
	return models.Catalogs{
		Statuses: []models.Status{
			{ID: statusActiveID, Name: "Active", NameAr: "نشط"},
			{ID: statusInactiveID, Name: "Inactive", NameAr: "غير نشط"},
		},
		DocumentTypes: []models.DocumentType{
			{ID: typeCardID, Name: "Judicial Card", IsJudicialCard: true},
			{ID: typeWarrantID, Name: "Warrant Decision", IsWarrantDecision: true},
			{ID: typeMiscID, Name: "Miscellaneous", IsMiscellaneous: true},
			{ID: typePassportID, Name: "Passport", IsExpiryTracked: true},
		},
		Legislations: []models.Legislation{
			{ID: "leg-1", Name: "Law 12"},
			{ID: "leg-2", Name: "Law 44"},
		},
	}
}

type fakeArchiveBackend struct {
	profiles     map[string]*models.HRProfile
	profileDelay map[string]time.Duration
	profileErr   error

	created     *models.EmployeeRecord
	updated     *models.EmployeeRecord
	submitErr   error
	lastBody    []byte
	lastCT      string
	lastMethod  string
	lastUpdated string
}

func (f *fakeArchiveBackend) GetHRProfile(ctx context.Context, id string) (*models.HRProfile, error) {
	if delay, ok := f.profileDelay[id]; ok {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	profile, ok := f.profiles[id]
	if !ok {
		return nil, appErrors.ErrNotFound
	}
	return profile, nil
}

func (f *fakeArchiveBackend) CreateEmployee(_ context.Context, body io.Reader, contentType string) (*models.EmployeeRecord, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	f.lastBody = data
	f.lastCT = contentType
	f.lastMethod = "create"
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	if f.created != nil {
		return f.created, nil
	}
	return &models.EmployeeRecord{ID: "rec-1"}, nil
}

func (f *fakeArchiveBackend) UpdateEmployee(_ context.Context, id string, body io.Reader, contentType string) (*models.EmployeeRecord, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	f.lastBody = data
	f.lastCT = contentType
	f.lastMethod = "update"
	f.lastUpdated = id
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	if f.updated != nil {
		return f.updated, nil
	}
	return &models.EmployeeRecord{ID: id}, nil
}

func newTestForm(backend *fakeArchiveBackend) *ArchiveFormEngine {
	form := NewArchiveForm(backend, backend, ArchiveFormConfig{}, nil)
	form.SetCatalogs(testCatalogs())
	return form
}

func seededBackend() *fakeArchiveBackend {
	return &fakeArchiveBackend{
		profiles: map[string]*models.HRProfile{
			"hr-1": {ID: "hr-1", EmployeeNumber: "1001", NameEn: "Ahmed Saleh", NameAr: "أحمد صالح", JobTitle: "Inspector", Department: "Field Ops", HireDate: "2019-04-01"},
			"hr-2": {ID: "hr-2", EmployeeNumber: "1002", NameEn: "Mona Hassan", NameAr: "منى حسن"},
		},
		profileDelay: map[string]time.Duration{},
	}
}

func TestArchiveFormLockedUntilIdentity(t *testing.T) {
	form := newTestForm(seededBackend())
	require.True(t, form.IsLocked())

	_, err := form.AddAttachment()
	require.ErrorIs(t, err, appErrors.ErrFormLocked)
	require.ErrorIs(t, form.SetNotes("x"), appErrors.ErrFormLocked)

	_, err = form.Submit(context.Background())
	require.Error(t, err)
}

func TestArchiveFormSelectBaseIdentitySeedsScalars(t *testing.T) {
	form := newTestForm(seededBackend())

	require.NoError(t, form.SelectBaseIdentity(context.Background(), "hr-1"))
	require.False(t, form.IsLocked())

	scalars := form.Scalars()
	assert.Equal(t, "1001", scalars.EmployeeNumber)
	assert.Equal(t, "Ahmed Saleh", scalars.NameEn)
	assert.Equal(t, "أحمد صالح", scalars.NameAr)
	assert.Equal(t, "Inspector", scalars.JobTitle)
}

func TestArchiveFormDeselectionRelocks(t *testing.T) {
	form := newTestForm(seededBackend())
	require.NoError(t, form.SelectBaseIdentity(context.Background(), "hr-1"))

	require.NoError(t, form.SelectBaseIdentity(context.Background(), ""))
	assert.True(t, form.IsLocked())
	assert.Empty(t, form.Scalars().EmployeeNumber)
}

func TestArchiveFormLatestSelectionWins(t *testing.T) {
	backend := seededBackend()
	backend.profileDelay["hr-1"] = 60 * time.Millisecond
	form := newTestForm(backend)

	done := make(chan error, 1)
	go func() { done <- form.SelectBaseIdentity(context.Background(), "hr-1") }()
	time.Sleep(10 * time.Millisecond)

	require.NoError(t, form.SelectBaseIdentity(context.Background(), "hr-2"))
	require.NoError(t, <-done)

	// The slower first response resolved after the second; it must not
	// overwrite the later selection's data.
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, "1002", form.Scalars().EmployeeNumber)
	assert.False(t, form.IsLocked())
}

func TestArchiveFormProfileErrorKeepsLocked(t *testing.T) {
	backend := seededBackend()
	backend.profileErr = errors.New("hr registry down")
	form := newTestForm(backend)

	require.Error(t, form.SelectBaseIdentity(context.Background(), "hr-1"))
	assert.True(t, form.IsLocked())
}

func TestArchiveFormRejectsDisallowedMIME(t *testing.T) {
	form := newTestForm(seededBackend())
	require.NoError(t, form.SelectBaseIdentity(context.Background(), "hr-1"))

	index, err := form.AddAttachment()
	require.NoError(t, err)

	err = form.SetAttachmentFile(index, FileHandle{Filename: "macro.docm", MimeType: "application/vnd.ms-word", Content: strings.NewReader("x")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JPEG, PNG and PDF")
	assert.Nil(t, form.Attachments()[index].File)

	require.NoError(t, form.SetAttachmentFile(index, FileHandle{Filename: "scan.pdf", MimeType: "application/pdf", Content: strings.NewReader("x")}))
	assert.NotNil(t, form.Attachments()[index].File)
}

func TestArchiveFormOnePerTypeExceptMiscellaneous(t *testing.T) {
	form := newTestForm(seededBackend())
	require.NoError(t, form.SelectBaseIdentity(context.Background(), "hr-1"))

	first, _ := form.AddAttachment()
	require.NoError(t, form.SetAttachmentType(first, typePassportID))

	second, _ := form.AddAttachment()
	err := form.SetAttachmentType(second, typePassportID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Passport")

	// Miscellaneous repeats freely.
	require.NoError(t, form.SetAttachmentType(second, typeMiscID))
	third, _ := form.AddAttachment()
	require.NoError(t, form.SetAttachmentType(third, typeMiscID))
}

func TestArchiveFormAvailableTypesProjection(t *testing.T) {
	form := newTestForm(seededBackend())
	require.NoError(t, form.SelectBaseIdentity(context.Background(), "hr-1"))

	index, _ := form.AddAttachment()
	require.NoError(t, form.SetAttachmentType(index, typeCardID))

	ids := make([]string, 0)
	for _, dt := range form.AvailableDocumentTypes(-1) {
		ids = append(ids, dt.ID)
	}
	assert.NotContains(t, ids, typeCardID)
	assert.Contains(t, ids, typeMiscID)
	assert.Contains(t, ids, typePassportID)

	// The row holding the type still sees it.
	own := make([]string, 0)
	for _, dt := range form.AvailableDocumentTypes(index) {
		own = append(own, dt.ID)
	}
	assert.Contains(t, own, typeCardID)
}

func TestArchiveFormTypeChangeResetsLegislation(t *testing.T) {
	form := newTestForm(seededBackend())
	require.NoError(t, form.SelectBaseIdentity(context.Background(), "hr-1"))

	index, _ := form.AddAttachment()
	require.NoError(t, form.SetAttachmentType(index, typeWarrantID))
	require.NoError(t, form.ToggleAttachmentLegislation(index, "leg-1"))
	require.NoError(t, form.ToggleAttachmentLegislation(index, "leg-2"))
	require.Len(t, form.Attachments()[index].LegislationIDs, 2)

	require.NoError(t, form.SetAttachmentType(index, typePassportID))
	assert.Empty(t, form.Attachments()[index].LegislationIDs)
}

func TestArchiveFormLegislationToggleRoundTrip(t *testing.T) {
	form := newTestForm(seededBackend())
	require.NoError(t, form.SelectBaseIdentity(context.Background(), "hr-1"))

	index, _ := form.AddAttachment()
	require.NoError(t, form.SetAttachmentType(index, typeWarrantID))
	require.NoError(t, form.ToggleAttachmentLegislation(index, "leg-1"))
	require.NoError(t, form.ToggleAttachmentLegislation(index, "leg-2"))
	require.NoError(t, form.ToggleAttachmentLegislation(index, "leg-2"))

	_, has1 := form.Attachments()[index].LegislationIDs["leg-1"]
	_, has2 := form.Attachments()[index].LegislationIDs["leg-2"]
	assert.True(t, has1)
	assert.False(t, has2)

	form2 := newTestForm(seededBackend())
	form2.Hydrate(&models.EmployeeRecord{
		ID: "rec-3",
		Documents: []models.PersistedDocument{
			{ID: "doc-w", DocumentTypeID: typeWarrantID, LegislationIDs: []string{"leg-1"}},
		},
	})
	require.NoError(t, form2.ToggleExistingAttachmentLegislation("doc-w", "leg-1"))
	require.NoError(t, form2.ToggleExistingAttachmentLegislation("doc-w", "leg-1"))
	_, back := form2.Attachments()[0].LegislationIDs["leg-1"]
	assert.True(t, back)
}

func TestArchiveFormDerivedStatus(t *testing.T) {
	form := newTestForm(seededBackend())
	require.NoError(t, form.SelectBaseIdentity(context.Background(), "hr-1"))

	// No judicial card yet: derived Inactive, direct edits allowed.
	assert.Equal(t, statusInactiveID, form.StatusID())
	require.NoError(t, form.SetStatus(statusActiveID))
	assert.Equal(t, statusActiveID, form.StatusID())

	index, _ := form.AddAttachment()
	require.NoError(t, form.SetAttachmentType(index, typeCardID))
	assert.Equal(t, statusActiveID, form.StatusID())

	// With a card present the status is derived and locked.
	err := form.SetStatus(statusInactiveID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "derived")

	require.NoError(t, form.RemoveAttachment(index))
	assert.Equal(t, statusInactiveID, form.StatusID())
}

func TestArchiveFormDerivedStatusNoOpWithoutCatalogPair(t *testing.T) {
	form := NewArchiveForm(seededBackend(), seededBackend(), ArchiveFormConfig{}, nil)
	cats := testCatalogs()
	cats.Statuses = cats.Statuses[:1]
	form.SetCatalogs(cats)
	require.NoError(t, form.SelectBaseIdentity(context.Background(), "hr-1"))

	index, _ := form.AddAttachment()
	require.NoError(t, form.SetAttachmentType(index, typeCardID))
	assert.Empty(t, form.StatusID())
}

func TestArchiveFormRemovePersistedMovesID(t *testing.T) {
	form := newTestForm(seededBackend())
	form.Hydrate(&models.EmployeeRecord{
		ID: "rec-9",
		Documents: []models.PersistedDocument{
			{ID: "doc-1", DocumentTypeID: typePassportID, DisplayName: "Passport", ExpiryDate: "2027-01-01"},
			{ID: "doc-2", DocumentTypeID: typeMiscID, DisplayName: "Letter"},
		},
	})

	require.NoError(t, form.RemoveAttachment(0))

	assert.Len(t, form.Attachments(), 1)
	assert.Equal(t, []string{"doc-1"}, form.RemovedPersistedIDs())

	// The id never appears in both places and never twice.
	for _, row := range form.Attachments() {
		assert.NotEqual(t, "doc-1", row.PersistedID)
	}
}

func TestArchiveFormSubmitValidation(t *testing.T) {
	form := newTestForm(seededBackend())
	require.NoError(t, form.SelectBaseIdentity(context.Background(), "hr-1"))

	index, _ := form.AddAttachment()
	_, err := form.Submit(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "document type")

	require.NoError(t, form.SetAttachmentType(index, typePassportID))
	require.NoError(t, form.SetAttachmentFile(index, FileHandle{Filename: "p.pdf", MimeType: "application/pdf", Content: strings.NewReader("pdf")}))

	// Expiry-tracked type without a date fails with the type named.
	_, err = form.Submit(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Passport")

	require.Error(t, form.SetAttachmentExpiry(index, "01/02/2027"))
	require.NoError(t, form.SetAttachmentExpiry(index, "2027-02-01"))

	_, err = form.Submit(context.Background())
	require.NoError(t, err)
}

func TestArchiveFormSubmitSerialization(t *testing.T) {
	backend := seededBackend()
	form := newTestForm(backend)
	require.NoError(t, form.SelectBaseIdentity(context.Background(), "hr-1"))
	require.NoError(t, form.SetNotes("transfer pending"))

	index, _ := form.AddAttachment()
	require.NoError(t, form.SetAttachmentType(index, typeWarrantID))
	require.NoError(t, form.SetAttachmentFile(index, FileHandle{Filename: "decision.pdf", MimeType: "application/pdf", Content: strings.NewReader("decision-bytes")}))
	require.NoError(t, form.ToggleAttachmentLegislation(index, "leg-2"))
	require.NoError(t, form.ToggleAttachmentLegislation(index, "leg-1"))

	record, err := form.Submit(context.Background())
	require.NoError(t, err)
	require.Equal(t, "rec-1", record.ID)
	require.Equal(t, "create", backend.lastMethod)

	_, params, err := mime.ParseMediaType(backend.lastCT)
	require.NoError(t, err)
	reader := multipart.NewReader(strings.NewReader(string(backend.lastBody)), params["boundary"])

	fields := map[string][]string{}
	files := map[string]string{}
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		data, err := io.ReadAll(part)
		require.NoError(t, err)
		if part.FileName() != "" {
			files[part.FormName()] = string(data)
		} else {
			fields[part.FormName()] = append(fields[part.FormName()], string(data))
		}
	}

	var scalars dto.EmployeeScalars
	require.NoError(t, json.Unmarshal([]byte(fields["employee_data"][0]), &scalars))
	assert.Equal(t, "1001", scalars.EmployeeNumber)
	assert.Equal(t, "transfer pending", scalars.Notes)
	assert.Equal(t, statusInactiveID, scalars.StatusID)

	assert.Equal(t, "decision-bytes", files["new_documents[0][file]"])
	assert.Equal(t, []string{typeWarrantID}, fields["new_documents[0][document_type_id]"])
	assert.Equal(t, []string{"Warrant Decision"}, fields["new_documents[0][document_type_name]"])
	assert.Equal(t, []string{"leg-1", "leg-2"}, fields["new_documents[0][legislation_ids]"])
	assert.Equal(t, []string{"[]"}, fields["deleted_documents"])
	_, hasUpdated := fields["updated_documents"]
	assert.False(t, hasUpdated)
}

func TestArchiveFormEditSubmitSerialization(t *testing.T) {
	backend := seededBackend()
	form := newTestForm(backend)
	form.Hydrate(&models.EmployeeRecord{
		ID:             "rec-5",
		EmployeeNumber: "1001",
		NameEn:         "Ahmed Saleh",
		Documents: []models.PersistedDocument{
			{ID: "doc-w", DocumentTypeID: typeWarrantID, DisplayName: "Decision", LegislationIDs: []string{"leg-1"}},
			{ID: "doc-m", DocumentTypeID: typeMiscID, DisplayName: "Letter"},
		},
	})

	require.NoError(t, form.ToggleExistingAttachmentLegislation("doc-w", "leg-2"))
	require.NoError(t, form.RemoveAttachment(1))

	record, err := form.Submit(context.Background())
	require.NoError(t, err)
	require.Equal(t, "rec-5", record.ID)
	require.Equal(t, "update", backend.lastMethod)
	require.Equal(t, "rec-5", backend.lastUpdated)

	_, params, err := mime.ParseMediaType(backend.lastCT)
	require.NoError(t, err)
	reader := multipart.NewReader(strings.NewReader(string(backend.lastBody)), params["boundary"])

	fields := map[string]string{}
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		data, err := io.ReadAll(part)
		require.NoError(t, err)
		fields[part.FormName()] = string(data)
	}

	var removed []string
	require.NoError(t, json.Unmarshal([]byte(fields["deleted_documents"]), &removed))
	assert.Equal(t, []string{"doc-m"}, removed)

	var updated []dto.UpdatedDocument
	require.NoError(t, json.Unmarshal([]byte(fields["updated_documents"]), &updated))
	require.Len(t, updated, 1)
	assert.Equal(t, "doc-w", updated[0].DocumentID)
	assert.Equal(t, []string{"leg-1", "leg-2"}, updated[0].LegislationIDs)
}

func TestArchiveFormFailedSubmitKeepsState(t *testing.T) {
	backend := seededBackend()
	backend.submitErr = appErrors.Upstream(500, "backend exploded")
	form := newTestForm(backend)
	require.NoError(t, form.SelectBaseIdentity(context.Background(), "hr-1"))

	index, _ := form.AddAttachment()
	require.NoError(t, form.SetAttachmentType(index, typeMiscID))
	require.NoError(t, form.SetAttachmentFile(index, FileHandle{Filename: "x.png", MimeType: "image/png", Content: strings.NewReader("png")}))

	_, err := form.Submit(context.Background())
	require.Error(t, err)

	// Everything the user entered survives for correction and retry.
	assert.Len(t, form.Attachments(), 1)
	assert.Equal(t, "1001", form.Scalars().EmployeeNumber)
}

func TestArchiveFormRetryResendsFileBytes(t *testing.T) {
	backend := seededBackend()
	backend.submitErr = appErrors.Upstream(500, "backend exploded")
	form := newTestForm(backend)
	require.NoError(t, form.SelectBaseIdentity(context.Background(), "hr-1"))

	index, _ := form.AddAttachment()
	require.NoError(t, form.SetAttachmentType(index, typeMiscID))
	require.NoError(t, form.SetAttachmentFile(index, FileHandle{Filename: "x.png", MimeType: "image/png", Content: strings.NewReader("png-bytes")}))

	_, err := form.Submit(context.Background())
	require.Error(t, err)

	backend.submitErr = nil
	_, err = form.Submit(context.Background())
	require.NoError(t, err)

	// The retried submission carries the full file content, not a drained
	// reader.
	_, params, err := mime.ParseMediaType(backend.lastCT)
	require.NoError(t, err)
	reader := multipart.NewReader(strings.NewReader(string(backend.lastBody)), params["boundary"])
	var fileBody string
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		data, err := io.ReadAll(part)
		require.NoError(t, err)
		if part.FormName() == "new_documents[0][file]" {
			fileBody = string(data)
		}
	}
	assert.Equal(t, "png-bytes", fileBody)
}

func TestArchiveFormReadOnly(t *testing.T) {
	form := newTestForm(seededBackend())
	require.NoError(t, form.SelectBaseIdentity(context.Background(), "hr-1"))
	form.SetReadOnly(true)

	_, err := form.AddAttachment()
	require.ErrorIs(t, err, appErrors.ErrForbidden)
	require.ErrorIs(t, form.SetNotes("x"), appErrors.ErrForbidden)

	_, err = form.Submit(context.Background())
	require.ErrorIs(t, err, appErrors.ErrForbidden)
}
