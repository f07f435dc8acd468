package record

import "strings"

// Канонические ключи, которыми пользуются потребители хранилища
const (
	KeyAccounts                  = "accounts"
	KeyTransactions              = "transactions"
	KeyBudgets                   = "budgets"
	KeyGoals                     = "goals"
	KeyTags                      = "tags"
	KeyRecurringTransactions     = "recurringTransactions"
	KeyCategories                = "categories"
	KeyPreferences               = "preferences"
	KeyTheme                     = "theme"
	KeyAccentColor               = "accentColor"
	KeyNotificationsEnabled      = "notificationsEnabled"
	KeyBudgetAlertsEnabled       = "budgetAlertsEnabled"
	KeyBudgetAlertThreshold      = "budgetAlertThreshold"
	KeyLargeTransactionAlerts    = "largeTransactionAlerts"
	KeyLargeTransactionThreshold = "largeTransactionThreshold"
)

// Ключи сессионного хранилища
const (
	MigrationFlagKey = "wealthtracker_migrated"
)

// CanonicalKeys все канонические ключи в постоянном порядке
var CanonicalKeys = []string{
	KeyAccounts,
	KeyTransactions,
	KeyBudgets,
	KeyGoals,
	KeyTags,
	KeyRecurringTransactions,
	KeyCategories,
	KeyPreferences,
	KeyTheme,
	KeyAccentColor,
	KeyNotificationsEnabled,
	KeyBudgetAlertsEnabled,
	KeyBudgetAlertThreshold,
	KeyLargeTransactionAlerts,
	KeyLargeTransactionThreshold,
}

// LegacyPrefixes пространства имен приложения в устаревшем хранилище
var LegacyPrefixes = []string{"wealthtracker_", "money_management_"}

var sensitiveKeys = map[string]struct{}{
	KeyAccounts:              {},
	KeyTransactions:          {},
	KeyBudgets:               {},
	KeyGoals:                 {},
	KeyRecurringTransactions: {},
	KeyCategories:            {},
}

var sensitivePatterns = []string{
	"transaction",
	"account",
	"budget",
	"financial",
	"goal",
	"balance",
	"investment",
	"debt",
}

var canonicalSet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(CanonicalKeys))
	for _, k := range CanonicalKeys {
		set[k] = struct{}{}
	}
	return set
}()

// IsSensitive сообщает, хранит ли key финансовые данные, которые шифруются по умолчанию
func IsSensitive(key string) bool {
	if _, ok := sensitiveKeys[key]; ok {
		return true
	}
	lower := strings.ToLower(key)
	for _, p := range sensitivePatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// IsCanonical сообщает, входит ли key в CanonicalKeys
func IsCanonical(key string) bool {
	_, ok := canonicalSet[key]
	return ok
}

// HasLegacyPrefix сообщает, начинается ли key с одного из LegacyPrefixes
func HasLegacyPrefix(key string) bool {
	for _, p := range LegacyPrefixes {
		if strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}

// isOwnedLegacyKey отбирает устаревшие ключи, которые движок может переносить и удалять
func isOwnedLegacyKey(key string) bool {
	return HasLegacyPrefix(key) || IsCanonical(key)
}
