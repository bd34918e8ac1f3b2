package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Karimk94/edms-archive-gateway/internal/dto"
	"github.com/Karimk94/edms-archive-gateway/internal/models"
	appErrors "github.com/Karimk94/edms-archive-gateway/pkg/errors"
)

// ProfileFetcher loads canonical HR profiles for base-identity selection.
type ProfileFetcher interface {
	GetHRProfile(ctx context.Context, id string) (*models.HRProfile, error)
}

// ArchiveSubmitter forwards a serialized archive submission upstream.
type ArchiveSubmitter interface {
	CreateEmployee(ctx context.Context, body io.Reader, contentType string) (*models.EmployeeRecord, error)
	UpdateEmployee(ctx context.Context, id string, body io.Reader, contentType string) (*models.EmployeeRecord, error)
}

// FileHandle is a file queued for upload. Content is read once, when the
// file is attached to a row; the buffered bytes are what gets submitted, so
// a retried submission carries the same payload.
type FileHandle struct {
	Filename string
	MimeType string
	Content  io.Reader

	data []byte
}

// AttachmentKind distinguishes the two attachment lifecycle variants.
type AttachmentKind int

const (
	// AttachmentPending is queued for upload on submit.
	AttachmentPending AttachmentKind = iota
	// AttachmentPersisted is already stored server-side.
	AttachmentPersisted
)

// Attachment is one row of the form's attachment list.
type Attachment struct {
	Kind           AttachmentKind
	RowID          string
	PersistedID    string
	DocumentTypeID string
	DisplayName    string
	File           *FileHandle
	ExpiryDate     string
	LegislationIDs map[string]struct{}
}

const expiryDateLayout = "2006-01-02"

// ArchiveFormEngine holds an archive record under construction: scalar
// fields seeded from an HR profile plus a dynamic attachment list. It
// enforces the cross-field rules before anything touches the network and
// owns the serialization of a submission.
type ArchiveFormEngine struct {
	mu        sync.Mutex
	profiles  ProfileFetcher
	submitter ArchiveSubmitter
	validator *validator.Validate
	logger    *zap.Logger

	allowedMIMEs map[string]struct{}

	editMode bool
	recordID string
	locked   bool
	readOnly bool

	scalars     dto.EmployeeScalars
	attachments []Attachment
	removed     []string
	removedSet  map[string]struct{}
	catalogs    models.Catalogs

	profileCancel context.CancelFunc
	profileGen    uint64
}

// ArchiveFormConfig bundles the engine's validation parameters.
type ArchiveFormConfig struct {
	AllowedMIMEs []string
}

// NewArchiveForm builds an empty form in new-record mode: every mutating
// operation except base-identity selection is locked until a profile seeds
// the scalars.
func NewArchiveForm(profiles ProfileFetcher, submitter ArchiveSubmitter, cfg ArchiveFormConfig, logger *zap.Logger) *ArchiveFormEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	mimes := cfg.AllowedMIMEs
	if len(mimes) == 0 {
		mimes = []string{"image/jpeg", "image/png", "application/pdf"}
	}
	mimeSet := make(map[string]struct{}, len(mimes))
	for _, m := range mimes {
		mimeSet[strings.ToLower(m)] = struct{}{}
	}
	return &ArchiveFormEngine{
		profiles:     profiles,
		submitter:    submitter,
		validator:    validator.New(),
		logger:       logger,
		allowedMIMEs: mimeSet,
		locked:       true,
		removedSet:   map[string]struct{}{},
	}
}

// Hydrate loads an existing record into the form: edit mode, unlocked, base
// identity read-only.
func (f *ArchiveFormEngine) Hydrate(record *models.EmployeeRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.editMode = true
	f.recordID = record.ID
	f.locked = false
	f.scalars = dto.EmployeeScalars{
		EmployeeNumber: record.EmployeeNumber,
		NameEn:         record.NameEn,
		NameAr:         record.NameAr,
		JobTitle:       record.JobTitle,
		Department:     record.Department,
		HireDate:       record.HireDate,
		Notes:          record.Notes,
		StatusID:       record.StatusID,
	}
	f.attachments = f.attachments[:0]
	f.removed = nil
	f.removedSet = map[string]struct{}{}
	for _, doc := range record.Documents {
		legs := make(map[string]struct{}, len(doc.LegislationIDs))
		for _, id := range doc.LegislationIDs {
			legs[id] = struct{}{}
		}
		f.attachments = append(f.attachments, Attachment{
			Kind:           AttachmentPersisted,
			PersistedID:    doc.ID,
			DocumentTypeID: doc.DocumentTypeID,
			DisplayName:    doc.DisplayName,
			ExpiryDate:     doc.ExpiryDate,
			LegislationIDs: legs,
		})
	}
	f.recomputeStatusLocked()
}

// SetReadOnly switches the viewer-role projection: every mutating operation
// is rejected. This is a display-level capability gate, not a security
// boundary.
func (f *ArchiveFormEngine) SetReadOnly(readOnly bool) {
	f.mu.Lock()
	f.readOnly = readOnly
	f.mu.Unlock()
}

// SetCatalogs installs the lookup lists and recomputes the derived status.
func (f *ArchiveFormEngine) SetCatalogs(c models.Catalogs) {
	f.mu.Lock()
	f.catalogs = c
	f.recomputeStatusLocked()
	f.mu.Unlock()
}

// IsLocked reports whether the form awaits a base-identity selection.
func (f *ArchiveFormEngine) IsLocked() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.locked
}

// Scalars returns a copy of the scalar fields.
func (f *ArchiveFormEngine) Scalars() dto.EmployeeScalars {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.scalars
}

// Attachments returns a copy of the attachment rows.
func (f *ArchiveFormEngine) Attachments() []Attachment {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Attachment, len(f.attachments))
	copy(out, f.attachments)
	return out
}

// RemovedPersistedIDs returns the ids marked for deletion.
func (f *ArchiveFormEngine) RemovedPersistedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.removed))
	copy(out, f.removed)
	return out
}

// SelectBaseIdentity resolves the chosen HR identity and seeds the scalar
// fields. An empty id re-locks the form and clears the seeded fields. The
// last-issued call always wins: a newer selection cancels the previous
// profile fetch, and a superseded response is discarded.
func (f *ArchiveFormEngine) SelectBaseIdentity(ctx context.Context, id string) error {
	f.mu.Lock()
	if f.readOnly {
		f.mu.Unlock()
		return appErrors.ErrForbidden
	}
	if f.editMode {
		f.mu.Unlock()
		return appErrors.Clone(appErrors.ErrValidation, "the employee cannot be changed while editing an existing record")
	}
	if strings.TrimSpace(id) == "" {
		f.cancelProfileLocked()
		f.locked = true
		f.scalars = dto.EmployeeScalars{}
		f.mu.Unlock()
		return nil
	}

	f.cancelProfileLocked()
	gen := f.profileGen
	fetchCtx, cancel := context.WithCancel(ctx)
	f.profileCancel = cancel
	f.mu.Unlock()

	profile, err := f.profiles.GetHRProfile(fetchCtx, id)

	f.mu.Lock()
	defer f.mu.Unlock()
	if gen != f.profileGen {
		// A newer selection superseded this one; its data never applies.
		return nil
	}
	f.profileCancel = nil
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
	f.scalars = dto.EmployeeScalars{
		EmployeeNumber: profile.EmployeeNumber,
		NameEn:         profile.NameEn,
		NameAr:         profile.NameAr,
		JobTitle:       profile.JobTitle,
		Department:     profile.Department,
		HireDate:       profile.HireDate,
		StatusID:       f.scalars.StatusID,
	}
	f.locked = false
	return nil
}

// SetNotes updates the free-text notes field.
func (f *ArchiveFormEngine) SetNotes(notes string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.mutableLocked(); err != nil {
		return err
	}
	f.scalars.Notes = notes
	return nil
}

// SetStatus applies a direct status edit. Rejected once any judicial-card
// attachment exists, because the status is then derived.
func (f *ArchiveFormEngine) SetStatus(statusID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.mutableLocked(); err != nil {
		return err
	}
	if f.hasJudicialCardLocked() {
		return appErrors.Clone(appErrors.ErrValidation, "the status is derived from the archived documents and cannot be edited")
	}
	f.scalars.StatusID = statusID
	return nil
}

// AddAttachment appends an empty pending row and returns its index.
func (f *ArchiveFormEngine) AddAttachment() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.mutableLocked(); err != nil {
		return 0, err
	}
	f.attachments = append(f.attachments, Attachment{
		Kind:           AttachmentPending,
		RowID:          uuid.NewString(),
		LegislationIDs: map[string]struct{}{},
	})
	return len(f.attachments) - 1, nil
}

// SetAttachmentFile attaches a file to a pending row. Disallowed MIME types
// are rejected with a validation message and the picker is reset.
func (f *ArchiveFormEngine) SetAttachmentFile(index int, file FileHandle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, err := f.pendingRowLocked(index)
	if err != nil {
		return err
	}
	if _, ok := f.allowedMIMEs[strings.ToLower(file.MimeType)]; !ok {
		row.File = nil
		return appErrors.Clone(appErrors.ErrValidation, "only JPEG, PNG and PDF files can be archived")
	}
	if file.Content != nil {
		file.data, err = io.ReadAll(file.Content)
		if err != nil {
			row.File = nil
			return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "the selected file could not be read")
		}
	}
	row.File = &file
	return nil
}

// SetAttachmentType assigns the document type of a pending row. A type
// already used by another non-miscellaneous attachment is not selectable.
// Changing the type resets the related legislation set unless the new type
// is the warrant-decision type.
func (f *ArchiveFormEngine) SetAttachmentType(index int, typeID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, err := f.pendingRowLocked(index)
	if err != nil {
		return err
	}
	dt, ok := f.catalogs.DocumentTypeByID(typeID)
	if !ok {
		return appErrors.Clone(appErrors.ErrValidation, "unknown document type")
	}
	if !dt.IsMiscellaneous && f.typeUsedElsewhereLocked(typeID, index) {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("a document of type %s is already attached", dt.Name))
	}
	row.DocumentTypeID = typeID
	if !dt.IsWarrantDecision {
		row.LegislationIDs = map[string]struct{}{}
	}
	f.recomputeStatusLocked()
	return nil
}

// SetAttachmentExpiry records the expiry date (YYYY-MM-DD) of a pending row.
func (f *ArchiveFormEngine) SetAttachmentExpiry(index int, date string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, err := f.pendingRowLocked(index)
	if err != nil {
		return err
	}
	if date != "" {
		if _, perr := time.Parse(expiryDateLayout, date); perr != nil {
			return appErrors.Clone(appErrors.ErrValidation, "expiry date must be YYYY-MM-DD")
		}
	}
	row.ExpiryDate = date
	return nil
}

// ToggleAttachmentLegislation toggles one legislation id on a pending row.
func (f *ArchiveFormEngine) ToggleAttachmentLegislation(index int, legislationID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, err := f.pendingRowLocked(index)
	if err != nil {
		return err
	}
	toggleMembership(row.LegislationIDs, legislationID)
	return nil
}

// ToggleExistingAttachmentLegislation toggles one legislation id on a
// persisted row, so the backend can reconcile it on update without a new
// file upload.
func (f *ArchiveFormEngine) ToggleExistingAttachmentLegislation(persistedID, legislationID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.mutableLocked(); err != nil {
		return err
	}
	for i := range f.attachments {
		row := &f.attachments[i]
		if row.Kind == AttachmentPersisted && row.PersistedID == persistedID {
			if row.LegislationIDs == nil {
				row.LegislationIDs = map[string]struct{}{}
			}
			toggleMembership(row.LegislationIDs, legislationID)
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrNotFound, "attachment not found")
}

// RemoveAttachment deletes a pending row outright; a persisted row's id
// moves into the removed set atomically, never present in both places.
func (f *ArchiveFormEngine) RemoveAttachment(index int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.mutableLocked(); err != nil {
		return err
	}
	if index < 0 || index >= len(f.attachments) {
		return appErrors.Clone(appErrors.ErrValidation, "attachment index out of range")
	}
	row := f.attachments[index]
	if row.Kind == AttachmentPersisted {
		if _, dup := f.removedSet[row.PersistedID]; !dup {
			f.removedSet[row.PersistedID] = struct{}{}
			f.removed = append(f.removed, row.PersistedID)
		}
	}
	f.attachments = append(f.attachments[:index], f.attachments[index+1:]...)
	f.recomputeStatusLocked()
	return nil
}

// AvailableDocumentTypes projects the types selectable for the given row:
// every miscellaneous type plus any type not used by another attachment.
// Pass -1 for a prospective new row.
func (f *ArchiveFormEngine) AvailableDocumentTypes(forIndex int) []models.DocumentType {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.DocumentType, 0, len(f.catalogs.DocumentTypes))
	for _, dt := range f.catalogs.DocumentTypes {
		if dt.IsMiscellaneous || !f.typeUsedElsewhereLocked(dt.ID, forIndex) {
			out = append(out, dt)
		}
	}
	return out
}

// StatusID returns the current (possibly derived) status reference.
func (f *ArchiveFormEngine) StatusID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.scalars.StatusID
}

// Submit validates and serializes the record, then issues a create or
// update. Validation fails fast on the first violation, scanning pending
// attachments in order. A failed submission leaves all state intact.
func (f *ArchiveFormEngine) Submit(ctx context.Context) (*models.EmployeeRecord, error) {
	f.mu.Lock()
	if f.readOnly {
		f.mu.Unlock()
		return nil, appErrors.ErrForbidden
	}
	if f.locked {
		f.mu.Unlock()
		return nil, appErrors.Clone(appErrors.ErrValidation, "select an employee before submitting")
	}
	if err := f.validator.Struct(f.scalars); err != nil {
		f.mu.Unlock()
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid employee data")
	}
	if err := f.validateAttachmentsLocked(); err != nil {
		f.mu.Unlock()
		return nil, err
	}
	body, contentType, err := f.serializeLocked()
	if err != nil {
		f.mu.Unlock()
		return nil, err
	}
	editMode, recordID := f.editMode, f.recordID
	f.mu.Unlock()

	if editMode {
		return f.submitter.UpdateEmployee(ctx, recordID, body, contentType)
	}
	return f.submitter.CreateEmployee(ctx, body, contentType)
}

// Teardown cancels an outstanding profile fetch. The record is discarded on
// navigation away; there is no client-side autosave.
func (f *ArchiveFormEngine) Teardown() {
	f.mu.Lock()
	f.cancelProfileLocked()
	f.mu.Unlock()
}

func (f *ArchiveFormEngine) validateAttachmentsLocked() error {
	for _, row := range f.attachments {
		if row.Kind != AttachmentPending {
			continue
		}
		if row.DocumentTypeID == "" {
			return appErrors.Clone(appErrors.ErrValidation, "every attachment needs a document type")
		}
		if row.File == nil {
			return appErrors.Clone(appErrors.ErrValidation, "every attachment needs a file")
		}
		dt, ok := f.catalogs.DocumentTypeByID(row.DocumentTypeID)
		if ok && dt.IsExpiryTracked && row.ExpiryDate == "" {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("an expiry date is required for %s", dt.Name))
		}
	}
	for _, row := range f.attachments {
		if row.Kind != AttachmentPersisted {
			continue
		}
		dt, ok := f.catalogs.DocumentTypeByID(row.DocumentTypeID)
		if ok && dt.IsExpiryTracked && row.ExpiryDate == "" {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("an expiry date is required for %s", dt.Name))
		}
	}
	return nil
}

// serializeLocked writes the multipart submission: employee_data JSON, each
// pending attachment as an indexed entry, the removed ids, and (edit mode
// only) the legislation sets of persisted warrant-decision documents.
func (f *ArchiveFormEngine) serializeLocked() (io.Reader, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	scalarJSON, err := json.Marshal(f.scalars)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "marshal employee data")
	}
	if err := w.WriteField("employee_data", string(scalarJSON)); err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "write employee data")
	}

	pendingIdx := 0
	for _, row := range f.attachments {
		if row.Kind != AttachmentPending {
			continue
		}
		prefix := fmt.Sprintf("new_documents[%d]", pendingIdx)
		part, err := w.CreateFormFile(prefix+"[file]", row.File.Filename)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "write attachment file")
		}
		if _, err := part.Write(row.File.data); err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "copy attachment file")
		}
		dt, _ := f.catalogs.DocumentTypeByID(row.DocumentTypeID)
		fields := map[string]string{
			prefix + "[document_type_id]":   row.DocumentTypeID,
			prefix + "[document_type_name]": dt.Name,
			prefix + "[expiry_date]":        row.ExpiryDate,
		}
		for key, value := range fields {
			if err := w.WriteField(key, value); err != nil {
				return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "write attachment field")
			}
		}
		for _, legID := range sortedIDs(row.LegislationIDs) {
			if err := w.WriteField(prefix+"[legislation_ids]", legID); err != nil {
				return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "write legislation id")
			}
		}
		pendingIdx++
	}

	// Always a JSON array on the wire, even with no removals.
	removedJSON, err := json.Marshal(append([]string{}, f.removed...))
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "marshal removed documents")
	}
	if err := w.WriteField("deleted_documents", string(removedJSON)); err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "write removed documents")
	}

	if f.editMode {
		updated := make([]dto.UpdatedDocument, 0)
		for _, row := range f.attachments {
			if row.Kind != AttachmentPersisted {
				continue
			}
			dt, ok := f.catalogs.DocumentTypeByID(row.DocumentTypeID)
			if !ok || !dt.IsWarrantDecision {
				continue
			}
			updated = append(updated, dto.UpdatedDocument{
				DocumentID:     row.PersistedID,
				LegislationIDs: sortedIDs(row.LegislationIDs),
			})
		}
		updatedJSON, err := json.Marshal(updated)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "marshal updated documents")
		}
		if err := w.WriteField("updated_documents", string(updatedJSON)); err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "write updated documents")
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "finalize submission")
	}
	return buf, w.FormDataContentType(), nil
}

// recomputeStatusLocked applies the derived-status priority rule: any
// judicial-card attachment forces Active, otherwise Inactive. When either
// catalog entry is missing the status is left untouched.
func (f *ArchiveFormEngine) recomputeStatusLocked() {
	active, okActive := f.catalogs.StatusByName("Active")
	inactive, okInactive := f.catalogs.StatusByName("Inactive")
	if !okActive || !okInactive {
		return
	}
	if f.hasJudicialCardLocked() {
		f.scalars.StatusID = active.ID
	} else {
		f.scalars.StatusID = inactive.ID
	}
}

func (f *ArchiveFormEngine) hasJudicialCardLocked() bool {
	for _, row := range f.attachments {
		if dt, ok := f.catalogs.DocumentTypeByID(row.DocumentTypeID); ok && dt.IsJudicialCard {
			return true
		}
	}
	return false
}

func (f *ArchiveFormEngine) typeUsedElsewhereLocked(typeID string, excludeIndex int) bool {
	for i, row := range f.attachments {
		if i == excludeIndex || row.DocumentTypeID != typeID {
			continue
		}
		if dt, ok := f.catalogs.DocumentTypeByID(row.DocumentTypeID); ok && dt.IsMiscellaneous {
			continue
		}
		return true
	}
	return false
}

func (f *ArchiveFormEngine) pendingRowLocked(index int) (*Attachment, error) {
	if err := f.mutableLocked(); err != nil {
		return nil, err
	}
	if index < 0 || index >= len(f.attachments) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "attachment index out of range")
	}
	row := &f.attachments[index]
	if row.Kind != AttachmentPending {
		return nil, appErrors.Clone(appErrors.ErrValidation, "stored documents cannot be edited directly")
	}
	return row, nil
}

func (f *ArchiveFormEngine) mutableLocked() error {
	if f.readOnly {
		return appErrors.ErrForbidden
	}
	if f.locked {
		return appErrors.ErrFormLocked
	}
	return nil
}

func (f *ArchiveFormEngine) cancelProfileLocked() {
	f.profileGen++
	if f.profileCancel != nil {
		f.profileCancel()
		f.profileCancel = nil
	}
}

func toggleMembership(set map[string]struct{}, id string) {
	if _, ok := set[id]; ok {
		delete(set, id)
	} else {
		set[id] = struct{}{}
	}
}

func sortedIDs(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
