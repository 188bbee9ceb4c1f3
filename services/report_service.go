package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"salonflow-backend/config"
	"salonflow-backend/models"
)

var monthPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// ReportService computes monthly business rollups and attaches an AI
// narrative to them.
type ReportService struct {
	db       *gorm.DB
	narrator Narrator
	settings *config.Settings
	log      zerolog.Logger
	now      func() time.Time
}

func NewReportService(db *gorm.DB, narrator Narrator, settings *config.Settings) *ReportService {
	return &ReportService{
		db:       db,
		narrator: narrator,
		settings: settings,
		log:      log.With().Str("component", "reports").Logger(),
		now:      time.Now,
	}
}

func monthBounds(month string, loc *time.Location) (time.Time, time.Time, error) {
	if !monthPattern.MatchString(month) {
		return time.Time{}, time.Time{}, &ValidationError{Field: "month", Reason: "must be in YYYY-MM format"}
	}
	year, _ := strconv.Atoi(month[:4])
	mon, _ := strconv.Atoi(month[5:])
	start := time.Date(year, time.Month(mon), 1, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 1, 0), nil
}

type topService struct {
	Service string  `json:"service"`
	Count   int     `json:"count"`
	Revenue float64 `json:"revenue"`
}

type dailyRevenue struct {
	Date    string  `json:"date"`
	Revenue float64 `json:"revenue"`
}

// Generate computes the rollup for a month from completed appointments,
// client records and the lead pipeline, and upserts the month's report row.
// The AI narrative is not touched here; a regenerated rollup keeps any
// existing summary until Summarize overwrites it.
func (s *ReportService) Generate(ctx context.Context, month string) (*models.Report, error) {
	start, end, err := monthBounds(month, s.settings.Timezone)
	if err != nil {
		return nil, err
	}

	var rollup struct {
		Count   int
		Revenue float64
	}
	if err := s.db.WithContext(ctx).
		Model(&models.Appointment{}).
		Select("COUNT(id) AS count, COALESCE(SUM(price), 0) AS revenue").
		Where("status = ? AND start_datetime >= ? AND start_datetime < ?", models.AppointmentCompleted, start, end).
		Scan(&rollup).Error; err != nil {
		return nil, err
	}

	var newClients int64
	if err := s.db.WithContext(ctx).
		Model(&models.Client{}).
		Where("created_at >= ? AND created_at < ?", start, end).
		Count(&newClients).Error; err != nil {
		return nil, err
	}

	// Returning clients whose latest visit landed this month count as
	// recovered; the lapsed flag itself is cleared on completion.
	var lapsedRecovered int64
	if err := s.db.WithContext(ctx).
		Model(&models.Client{}).
		Where("last_visit_date >= ? AND last_visit_date < ? AND total_visits > 1 AND is_lapsed = ?",
			start.Format("2006-01-02"), end.Format("2006-01-02"), false).
		Count(&lapsedRecovered).Error; err != nil {
		return nil, err
	}

	var leadsConverted int64
	if err := s.db.WithContext(ctx).
		Model(&models.ExtensionLead{}).
		Where("pipeline_stage = ? AND updated_at >= ? AND updated_at < ?", models.StageBooked, start, end).
		Count(&leadsConverted).Error; err != nil {
		return nil, err
	}

	var top []topService
	if err := s.db.WithContext(ctx).
		Model(&models.Appointment{}).
		Select("service_type AS service, COUNT(id) AS count, COALESCE(SUM(price), 0) AS revenue").
		Where("status = ? AND start_datetime >= ? AND start_datetime < ?", models.AppointmentCompleted, start, end).
		Group("service_type").
		Order("count DESC").
		Limit(5).
		Scan(&top).Error; err != nil {
		return nil, err
	}

	var daily []dailyRevenue
	if err := s.db.WithContext(ctx).
		Model(&models.Appointment{}).
		Select("DATE(start_datetime) AS date, COALESCE(SUM(price), 0) AS revenue").
		Where("status = ? AND start_datetime >= ? AND start_datetime < ?", models.AppointmentCompleted, start, end).
		Group("DATE(start_datetime)").
		Order("DATE(start_datetime)").
		Scan(&daily).Error; err != nil {
		return nil, err
	}

	var inventorySpend struct{ Total float64 }
	if err := s.db.WithContext(ctx).
		Model(&models.PurchaseOrder{}).
		Select("COALESCE(SUM(total_cost), 0) AS total").
		Where("status = ? AND received_at >= ? AND received_at < ?", "received", start, end).
		Scan(&inventorySpend).Error; err != nil {
		return nil, err
	}

	topRaw, _ := json.Marshal(top)
	chartsRaw, _ := json.Marshal(map[string]interface{}{"daily_revenue": daily})

	var report models.Report
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("report_month = ?", month).First(&report).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			report = models.Report{ReportMonth: month}
			if err := tx.Create(&report).Error; err != nil {
				return err
			}
		}
		return tx.Model(&report).Updates(map[string]interface{}{
			"revenue_total":      rollup.Revenue,
			"appointments_count": rollup.Count,
			"new_clients_count":  int(newClients),
			"lapsed_recovered":   int(lapsedRecovered),
			"leads_converted":    int(leadsConverted),
			"top_services":       topRaw,
			"charts_data":        chartsRaw,
			"inventory_spend":    inventorySpend.Total,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &report, nil
}

func (s *ReportService) Get(ctx context.Context, month string) (*models.Report, error) {
	var report models.Report
	if err := s.db.WithContext(ctx).Where("report_month = ?", month).First(&report).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("report %s: %w", month, ErrNotFound)
		}
		return nil, err
	}
	return &report, nil
}

func (s *ReportService) List(ctx context.Context) ([]models.Report, error) {
	var reports []models.Report
	err := s.db.WithContext(ctx).Order("report_month desc").Limit(24).Find(&reports).Error
	return reports, err
}

// Summarize streams the AI narrative for an already-generated report through
// emit and persists the full text only after the stream completes. The
// report is not modified if the stream fails partway.
func (s *ReportService) Summarize(ctx context.Context, month string, emit func(chunk string) error) (string, error) {
	report, err := s.Get(ctx, month)
	if err != nil {
		return "", err
	}

	var services []topService
	if len(report.TopServices) > 0 {
		_ = json.Unmarshal(report.TopServices, &services)
	}
	names := make([]string, 0, len(services))
	for _, svc := range services {
		names = append(names, svc.Service)
	}

	reportCtx := ReportContext{
		Month:             report.ReportMonth,
		RevenueTotal:      report.RevenueTotal,
		AppointmentsCount: report.AppointmentsCount,
		NewClientsCount:   report.NewClientsCount,
		LapsedRecovered:   report.LapsedRecovered,
		LeadsConverted:    report.LeadsConverted,
		TopServices:       names,
	}

	full, err := s.narrator.MonthlySummary(ctx, reportCtx, emit)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExternalService, err)
	}

	now := s.now()
	if err := s.db.WithContext(ctx).Model(report).Updates(map[string]interface{}{
		"ai_summary_text": full,
		"ai_generated_at": now,
	}).Error; err != nil {
		return "", err
	}
	return full, nil
}

// DashboardStats is the real-time KPI panel.
type DashboardStats struct {
	RevenueThisMonth      float64 `json:"revenue_this_month"`
	AppointmentsThisMonth int64   `json:"appointments_this_month"`
	TotalClients          int64   `json:"total_clients"`
	LapsedClients         int64   `json:"lapsed_clients"`
	ActiveLeads           int64   `json:"active_leads"`
	Upcoming7Days         int64   `json:"upcoming_7_days"`
}

func (s *ReportService) DashboardStats(ctx context.Context) (*DashboardStats, error) {
	now := s.now().In(s.settings.Timezone)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, s.settings.Timezone)

	var stats DashboardStats

	var revenue struct{ Total float64 }
	if err := s.db.WithContext(ctx).
		Model(&models.Appointment{}).
		Select("COALESCE(SUM(price), 0) AS total").
		Where("status = ? AND start_datetime >= ?", models.AppointmentCompleted, monthStart).
		Scan(&revenue).Error; err != nil {
		return nil, err
	}
	stats.RevenueThisMonth = revenue.Total

	if err := s.db.WithContext(ctx).
		Model(&models.Appointment{}).
		Where("status = ? AND start_datetime >= ?", models.AppointmentCompleted, monthStart).
		Count(&stats.AppointmentsThisMonth).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(&models.Client{}).Count(&stats.TotalClients).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).
		Model(&models.Client{}).
		Where("is_lapsed = ?", true).
		Count(&stats.LapsedClients).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).
		Model(&models.ExtensionLead{}).
		Where("pipeline_stage NOT IN ?", []models.PipelineStage{models.StageBooked, models.StageLost}).
		Count(&stats.ActiveLeads).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).
		Model(&models.Appointment{}).
		Where("status = ? AND start_datetime >= ? AND start_datetime <= ?",
			models.AppointmentScheduled, now, now.AddDate(0, 0, 7)).
		Count(&stats.Upcoming7Days).Error; err != nil {
		return nil, err
	}
	return &stats, nil
}
