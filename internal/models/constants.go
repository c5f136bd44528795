package models

const (
	// ShiftCutoffHour — граница смены: часы до 09:00 относятся к предыдущему дню.
	ShiftCutoffHour = 9

	// BusinessDateLayout — формат бизнес-даты во всех хранилищах и отчётах.
	BusinessDateLayout = "02.01.2006"

	// DefaultDurationSec — длительность брони, если в тексте её нет.
	DefaultDurationSec = 1800

	// DefaultDurationLabel — подпись длительности по умолчанию.
	DefaultDurationLabel = "30 мин"

	// DefaultDescriptor — подпись брони без имени.
	DefaultDescriptor = "Без имени"

	// DefaultChatTitle используется, когда Telegram не отдаёт название чата.
	DefaultChatTitle = "Салон"

	// ArchiveRetentionDays — глубина хранения архива смен.
	ArchiveRetentionDays = 90

	// DefaultSalaryPercent — процент ЗП, если для имени нет переопределения.
	DefaultSalaryPercent = 0.10
)

const (
	// Курсы на случай недоступности провайдера, значения из продовой конфигурации.
	FallbackLariToUSD = 0.37
	FallbackEuroToUSD = 1.05
	FallbackDramToUSD = 0.0025
)

const (
	// DefaultRedisTTL — время жизни состояния диалога редактирования.
	DefaultRedisTTL = 24 * 60 * 60

	// RateLimitMessages / RateLimitWindow — частотное ограничение сообщений.
	RateLimitMessages = 20
	RateLimitWindow   = 60

	// WorkerQueueSize — размер очереди воркера синхронизации.
	WorkerQueueSize = 1000
)

const (
	ParseModeHTML = "HTML"
)

// StaticSalaryPercent — базовая таблица процентов по именам операторов.
// Переопределяется настройками, см. Settings.SalaryPercent.
var StaticSalaryPercent = map[string]float64{
	"Саша":  0.12,
	"Света": 0.12,
}
