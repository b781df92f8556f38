package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"course-ledger/internal/clients"
	"course-ledger/internal/metrics"
	"course-ledger/internal/repository"
)

type ExportSource interface {
	ListAllRegistrations(ctx context.Context) ([]repository.RegistrationSummary, error)
}

// ExportStatus is the redis-backed state of one export job. The plain struct
// is what GetExport returns to the frontend, so every field carries a json tag.
type ExportStatus struct {
	Key      string    `json:"key"`
	Type     string    `json:"type"`
	UserID   int64     `json:"user_id"`
	Fields   []string  `json:"fields"`
	Progress float64   `json:"progress"`
	FileURL  *string   `json:"file_url"`
	Error    *string   `json:"error,omitempty"`
	Created  time.Time `json:"created_at"`
}

const (
	exportSetKey = "export_ids"
	exportTTL    = 20 * time.Minute
)

type ExportService struct {
	source  ExportSource
	redis   *clients.RedisClient
	storage *clients.StorageClient
	ws      *clients.WebSocketClient
}

func NewExportService(
	source ExportSource,
	redis *clients.RedisClient,
	storage *clients.StorageClient,
	ws *clients.WebSocketClient,
) *ExportService {
	return &ExportService{
		source:  source,
		redis:   redis,
		storage: storage,
		ws:      ws,
	}
}

type ledgerColumn struct {
	Header string
	Value  func(r repository.RegistrationSummary) any
}

var ledgerColumns = map[string]ledgerColumn{
	"receipt_no": {
		Header: "Receipt No",
		Value:  func(r repository.RegistrationSummary) any { return r.ReceiptNo },
	},
	"student.full_name": {
		Header: "Student",
		Value:  func(r repository.RegistrationSummary) any { return r.FullName },
	},
	"student.phone_number": {
		Header: "Phone",
		Value:  func(r repository.RegistrationSummary) any { return r.PhoneNumber },
	},
	"student.email": {
		Header: "Email",
		Value:  func(r repository.RegistrationSummary) any { return r.Email },
	},
	"total_amount": {
		Header: "Total Amount",
		Value:  func(r repository.RegistrationSummary) any { return r.TotalAmount.InexactFloat64() },
	},
	"admission_fees": {
		Header: "Admission Fees",
		Value:  func(r repository.RegistrationSummary) any { return r.AdmissionFees.InexactFloat64() },
	},
	"discount_amount": {
		Header: "Discount",
		Value:  func(r repository.RegistrationSummary) any { return r.DiscountAmount.InexactFloat64() },
	},
	"paid_amount": {
		Header: "Paid",
		Value:  func(r repository.RegistrationSummary) any { return r.PaidAmount.InexactFloat64() },
	},
	"due_amount": {
		Header: "Due",
		Value:  func(r repository.RegistrationSummary) any { return r.DueAmount.InexactFloat64() },
	},
	"payment_status": {
		Header: "Status",
		Value:  func(r repository.RegistrationSummary) any { return string(r.PaymentStatus) },
	},
	"overdue_months": {
		Header: "Overdue Months",
		Value:  func(r repository.RegistrationSummary) any { return r.OverdueMonths },
	},
	"registration_date": {
		Header: "Registered",
		Value: func(r repository.RegistrationSummary) any {
			return r.RegistrationDate.Format("2006-01-02")
		},
	},
}

var defaultLedgerFields = []string{
	"receipt_no",
	"student.full_name",
	"total_amount",
	"paid_amount",
	"due_amount",
	"payment_status",
	"overdue_months",
}

func (s *ExportService) saveExportStatus(ctx context.Context, st *ExportStatus) error {
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, st.Key, string(data), exportTTL); err != nil {
		return err
	}
	return s.redis.SAdd(ctx, exportSetKey, st.Key)
}

// StartLedgerExport queues a registration ledger export and returns its id.
// The XLSX file is generated in the background; progress and completion are
// pushed to the requesting user over websocket.
func (s *ExportService) StartLedgerExport(ctx context.Context, selected []string, userID int64) (string, error) {
	if s.redis == nil {
		return "", errors.New("redis client not configured")
	}

	if len(selected) == 0 {
		selected = defaultLedgerFields
	}
	var fields []string
	for _, key := range selected {
		if _, ok := ledgerColumns[key]; ok {
			fields = append(fields, key)
		}
	}
	if len(fields) == 0 {
		return "", fmt.Errorf("%w: no known export fields selected", ErrValidation)
	}

	exportID := fmt.Sprintf("exports:%s", uuid.NewString())
	now := time.Now()

	status := &ExportStatus{
		Key:      exportID,
		Type:     "ledger",
		UserID:   userID,
		Fields:   fields,
		Progress: 0,
		FileURL:  nil,
		Created:  now,
	}

	if err := s.saveExportStatus(ctx, status); err != nil {
		return "", fmt.Errorf("failed to save export status: %w", err)
	}

	metrics.ExportsStarted.Inc()
	go s.runLedgerExport(context.Background(), status)

	return exportID, nil
}

func (s *ExportService) runLedgerExport(ctx context.Context, status *ExportStatus) {
	fail := func(err error) {
		log.Printf("ledger export %s failed: %v", status.Key, err)
		msg := err.Error()
		status.Error = &msg
		_ = s.saveExportStatus(ctx, status)
		if s.ws != nil {
			_ = s.ws.NotifyExportFailed(ctx, status.UserID, status.Key, msg)
		}
	}

	regs, err := s.source.ListAllRegistrations(ctx)
	if err != nil {
		fail(fmt.Errorf("failed to load registrations: %w", err))
		return
	}

	cols := make([]ledgerColumn, 0, len(status.Fields))
	for _, key := range status.Fields {
		cols = append(cols, ledgerColumns[key])
	}

	f := excelize.NewFile()
	sheet := "Ledger"
	f.SetSheetName(f.GetSheetName(0), sheet)

	_ = f.SetDocProps(&excelize.DocProperties{
		Creator: fmt.Sprintf("user_%d", status.UserID),
	})

	for i, col := range cols {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, col.Header)
	}

	total := len(regs)
	chunkSize := 500
	rowIdx := 2

	for i, reg := range regs {
		for colIdx, col := range cols {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx)
			_ = f.SetCellValue(sheet, cell, col.Value(reg))
		}
		rowIdx++

		if (i+1)%chunkSize == 0 || i == total-1 {
			progress := math.Round(float64(i+1) / float64(total) * 100.0)
			// 100% is reserved for when the file URL is actually ready
			if progress >= 100 {
				progress = 95
			}
			status.Progress = progress
			_ = s.saveExportStatus(ctx, status)
			if s.ws != nil {
				_ = s.ws.NotifyExportProgress(ctx, status.UserID, status.Key, progress, "generating")
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		fail(fmt.Errorf("failed to render workbook: %w", err))
		return
	}

	fileName := fmt.Sprintf("ledger_%s.xlsx", time.Now().Format("20060102_150405"))

	status.Progress = 95
	_ = s.saveExportStatus(ctx, status)
	if s.ws != nil {
		_ = s.ws.NotifyExportProgress(ctx, status.UserID, status.Key, 95, "saving")
	}

	saved, err := s.storage.Save(ctx, fileName, buf.Bytes())
	if err != nil {
		fail(fmt.Errorf("failed to store export file: %w", err))
		return
	}

	url := s.storage.GetURL(saved)
	status.FileURL = &url
	status.Progress = 100
	_ = s.saveExportStatus(ctx, status)

	if s.ws != nil {
		_ = s.ws.NotifyExportProgress(ctx, status.UserID, status.Key, 100, "ready")
		_ = s.ws.NotifyExportComplete(ctx, status.UserID, status.Key, url, saved)
	}
}

// GetExports lists the caller's export jobs, newest first. Jobs expire from
// redis after twenty minutes.
func (s *ExportService) GetExports(ctx context.Context, userID int64) ([]ExportStatus, error) {
	if s.redis == nil {
		return nil, errors.New("redis client not configured")
	}

	keys, err := s.redis.SMembers(ctx, exportSetKey)
	if err != nil {
		return nil, fmt.Errorf("failed to get export keys: %w", err)
	}

	var statuses []ExportStatus
	for _, key := range keys {
		data, err := s.redis.Get(ctx, key)
		if err != nil {
			continue
		}

		var status ExportStatus
		if err := json.Unmarshal([]byte(data), &status); err != nil {
			continue
		}
		if status.UserID == userID {
			statuses = append(statuses, status)
		}
	}

	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].Created.After(statuses[j].Created)
	})

	return statuses, nil
}

func (s *ExportService) GetExport(ctx context.Context, exportID string, userID int64) (*ExportStatus, error) {
	if s.redis == nil {
		return nil, errors.New("redis client not configured")
	}

	data, err := s.redis.Get(ctx, exportID)
	if err != nil {
		return nil, fmt.Errorf("%w: export %s", ErrNotFound, exportID)
	}

	var status ExportStatus
	if err := json.Unmarshal([]byte(data), &status); err != nil {
		return nil, fmt.Errorf("failed to parse export status: %w", err)
	}
	if status.UserID != userID {
		return nil, fmt.Errorf("%w: export %s", ErrNotFound, exportID)
	}

	return &status, nil
}
