package config

import (
	"fmt"
	"strings"
	"text/template"
	"time"
)

const (
	TransactionIncome  = "INCOME"
	TransactionExpense = "EXPENSE"
)

type BotConfig struct {
	Commands         CommandsConfig `yaml:"commands"`
	BusinessTypes    []ChoiceOption `yaml:"business_types"`
	TransactionTypes []ChoiceOption `yaml:"transaction_types"`
	Backend          BackendConfig  `yaml:"backend"`
	Ops              OpsConfig      `yaml:"ops"`
	Journal          JournalConfig  `yaml:"journal"`
	Messages         Messages       `yaml:"messages"`
}

type CommandsConfig struct {
	Trigger string `yaml:"trigger"`
	Cancel  string `yaml:"cancel"`
	Refresh string `yaml:"refresh"`
}

// ChoiceOption is one entry of a fixed numbered menu. Its number is its 1-based position.
type ChoiceOption struct {
	Label string `yaml:"label"`
	Value string `yaml:"value"`
}

type BackendConfig struct {
	BaseURL        string        `yaml:"base_url"`
	MasterDataPath string        `yaml:"master_data_path"`
	SubmitPath     string        `yaml:"submit_path"`
	Timeout        time.Duration `yaml:"timeout"`
}

type OpsConfig struct {
	Addr string `yaml:"addr"`
}

type JournalConfig struct {
	DSN string `yaml:"dsn"`
}

// Messages holds every user-facing reply. Success and RefreshDone are text/template sources.
type Messages struct {
	BusinessTypeMenu      string `yaml:"business_type_menu"`
	BranchMenu            string `yaml:"branch_menu"`
	TransactionTypeMenu   string `yaml:"transaction_type_menu"`
	CategoryMenu          string `yaml:"category_menu"`
	CancelHint            string `yaml:"cancel_hint"`
	InvalidChoice         string `yaml:"invalid_choice"`
	NoBranches            string `yaml:"no_branches"`
	NoCategories          string `yaml:"no_categories"`
	AskAmount             string `yaml:"ask_amount"`
	InvalidAmount         string `yaml:"invalid_amount"`
	AskNotes              string `yaml:"ask_notes"`
	Success               string `yaml:"success"`
	SubmitFailed          string `yaml:"submit_failed"`
	Cancelled             string `yaml:"cancelled"`
	MasterDataUnavailable string `yaml:"master_data_unavailable"`
	RefreshDone           string `yaml:"refresh_done"`
	RefreshFailed         string `yaml:"refresh_failed"`
	InternalError         string `yaml:"internal_error"`
}

func DefaultConfig() *BotConfig {
	cfg := &BotConfig{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills every field left empty by the config file.
func (c *BotConfig) ApplyDefaults() {
	setDefault(&c.Commands.Trigger, "/catat")
	setDefault(&c.Commands.Cancel, "batal")
	setDefault(&c.Commands.Refresh, "/refresh")

	if len(c.BusinessTypes) == 0 {
		c.BusinessTypes = []ChoiceOption{
			{Label: "Laundry", Value: "LAUNDRY"},
			{Label: "Carwash", Value: "CARWASH"},
			{Label: "Kos", Value: "KOS"},
		}
	}
	if len(c.TransactionTypes) == 0 {
		c.TransactionTypes = []ChoiceOption{
			{Label: "Pemasukan", Value: TransactionIncome},
			{Label: "Pengeluaran", Value: TransactionExpense},
		}
	}

	setDefault(&c.Backend.MasterDataPath, "/ingestion/master-data")
	setDefault(&c.Backend.SubmitPath, "/ingestion/transactions")
	if c.Backend.Timeout <= 0 {
		c.Backend.Timeout = 10 * time.Second
	}
	setDefault(&c.Ops.Addr, ":8080")

	m := &c.Messages
	setDefault(&m.BusinessTypeMenu, "Pilih jenis usaha:")
	setDefault(&m.BranchMenu, "Pilih cabang:")
	setDefault(&m.TransactionTypeMenu, "Pilih jenis transaksi:")
	setDefault(&m.CategoryMenu, "Pilih kategori:")
	setDefault(&m.CancelHint, "Ketik batal untuk membatalkan.")
	setDefault(&m.InvalidChoice, "Pilihan tidak valid, balas dengan nomor yang tersedia.")
	setDefault(&m.NoBranches, "Belum ada cabang untuk jenis usaha ini. Sesi dihentikan.")
	setDefault(&m.NoCategories, "Belum ada kategori untuk jenis transaksi ini. Sesi dihentikan.")
	setDefault(&m.AskAmount, "Masukkan nominal (contoh: 50000):")
	setDefault(&m.InvalidAmount, "Nominal tidak valid, masukkan angka saja.")
	setDefault(&m.AskNotes, "Tambahkan catatan (ketik - jika tidak ada):")
	setDefault(&m.Success, "✅ Transaksi tersimpan dengan ID {{.ID}}.")
	setDefault(&m.SubmitFailed, "❌ Gagal menyimpan transaksi. Silakan mulai ulang.")
	setDefault(&m.Cancelled, "Sesi dibatalkan.")
	setDefault(&m.MasterDataUnavailable, "Data cabang belum tersedia, coba lagi nanti.")
	setDefault(&m.RefreshDone, "Master data diperbarui: {{.Branches}} cabang, {{.Categories}} kategori.")
	setDefault(&m.RefreshFailed, "Gagal memperbarui master data.")
	setDefault(&m.InternalError, "Terjadi kesalahan internal. Silakan mulai ulang.")
}

func setDefault(field *string, value string) {
	if strings.TrimSpace(*field) == "" {
		*field = value
	}
}

func (c *BotConfig) Validate() error {
	if c == nil {
		return fmt.Errorf("config is nil")
	}
	if c.Commands.Trigger == "" || c.Commands.Cancel == "" || c.Commands.Refresh == "" {
		return fmt.Errorf("config validation failed: trigger, cancel and refresh commands are required")
	}
	if strings.EqualFold(c.Commands.Trigger, c.Commands.Cancel) {
		return fmt.Errorf("config validation failed: trigger and cancel commands must differ (both '%s')", c.Commands.Trigger)
	}
	// The engine checks refresh before anything else, so a collision would shadow the other command.
	if strings.EqualFold(c.Commands.Refresh, c.Commands.Trigger) || strings.EqualFold(c.Commands.Refresh, c.Commands.Cancel) {
		return fmt.Errorf("config validation failed: refresh command '%s' collides with trigger or cancel", c.Commands.Refresh)
	}
	if err := validateChoices("business_types", c.BusinessTypes); err != nil {
		return err
	}
	if err := validateChoices("transaction_types", c.TransactionTypes); err != nil {
		return err
	}
	for i, option := range c.TransactionTypes {
		if option.Value != TransactionIncome && option.Value != TransactionExpense {
			return fmt.Errorf("config validation failed: transaction_types option #%d has value '%s', expected %s or %s", i+1, option.Value, TransactionIncome, TransactionExpense)
		}
	}
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("config validation failed: backend.base_url is required")
	}
	if _, err := template.New("success").Parse(c.Messages.Success); err != nil {
		return fmt.Errorf("config validation failed: messages.success: %w", err)
	}
	if _, err := template.New("refresh_done").Parse(c.Messages.RefreshDone); err != nil {
		return fmt.Errorf("config validation failed: messages.refresh_done: %w", err)
	}
	return nil
}

func validateChoices(name string, options []ChoiceOption) error {
	if len(options) == 0 {
		return fmt.Errorf("config validation failed: %s has no options", name)
	}
	seen := make(map[string]bool)
	for i, option := range options {
		if option.Label == "" {
			return fmt.Errorf("config validation failed: %s option #%d has no label", name, i+1)
		}
		if option.Value == "" {
			return fmt.Errorf("config validation failed: %s option #%d has no value", name, i+1)
		}
		if seen[option.Value] {
			return fmt.Errorf("config validation failed: duplicate value '%s' in %s", option.Value, name)
		}
		seen[option.Value] = true
	}
	return nil
}
