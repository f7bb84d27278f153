package config

import (
	"time"

	"github.com/spf13/viper"
)

// ReportConfig schedules the aggregate report job.  An Interval of zero
// disables the job in the server process.
type ReportConfig struct {
	Interval    time.Duration
	TicketPrice int64
}

func setReportDefaults(v *viper.Viper) {
	v.SetDefault("report_interval", time.Minute)
	v.SetDefault("report_ticket_price", 10)
}

func loadReport(v *viper.Viper) ReportConfig {
	return ReportConfig{
		Interval:    v.GetDuration("report_interval"),
		TicketPrice: v.GetInt64("report_ticket_price"),
	}
}
