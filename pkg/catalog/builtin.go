package catalog

import "github.com/agencykit/automation/pkg/models"

// Builtin returns the registry of condition definitions shipped with the
// platform. The set mirrors what the audience builder exposes to agents:
// policy attributes, customer attributes and email activity.
func Builtin() *Registry {
	registry, err := NewRegistry(builtinDefinitions())
	if err != nil {
		// The builtin set is compiled in; a bad entry is a programming error.
		panic(err)
	}

	return registry
}

func builtinDefinitions() []models.ConditionDefinition {
	return []models.ConditionDefinition{
		{
			ID:         "has_policy_type",
			Category:   "policy",
			Label:      "Has policy type",
			ConfigType: models.ConfigTypeSelect,
			Field:      "policy_types",
			Options:    []string{"Auto", "Home", "Renters", "Umbrella", "Life", "Commercial"},
		},
		{
			ID:         "policy_status",
			Category:   "policy",
			Label:      "Policy status",
			ConfigType: models.ConfigTypeSelect,
			Field:      "policy_status",
			Options:    []string{"Active", "Cancelled", "Expired", "Pending"},
		},
		{
			ID:         "carrier",
			Category:   "policy",
			Label:      "Carrier",
			ConfigType: models.ConfigTypeSelect,
			Field:      "carrier",
		},
		{
			ID:         "policy_renewal",
			Category:   "policy",
			Label:      "Policy renews in",
			ConfigType: models.ConfigTypeDaysFromNow,
			Field:      "policy_renewal_date",
			Unit:       "days",
		},
		{
			ID:         "policy_start",
			Category:   "policy",
			Label:      "Policy started",
			ConfigType: models.ConfigTypeDaysAgo,
			Field:      "policy_start_date",
			Unit:       "days",
		},
		{
			ID:         "policy_count",
			Category:   "policy",
			Label:      "Number of policies",
			ConfigType: models.ConfigTypeNumberCompare,
			Field:      "policy_count",
			Max:        50,
		},
		{
			ID:           "customer_age",
			Category:     "customer",
			Label:        "Customer age",
			ConfigType:   models.ConfigTypeNumberCompare,
			Field:        "age",
			Unit:         "years",
			Max:          120,
			DefaultValue: 18,
		},
		{
			ID:         "is_new_customer",
			Category:   "customer",
			Label:      "Is a new customer",
			ConfigType: models.ConfigTypeNone,
			Field:      "is_new_customer",
		},
		{
			ID:         "has_email_address",
			Category:   "customer",
			Label:      "Has an email address",
			ConfigType: models.ConfigTypeNone,
			Field:      "has_email_address",
		},
		{
			ID:         "customer_state",
			Category:   "customer",
			Label:      "State",
			ConfigType: models.ConfigTypeSelect,
			Field:      "state",
		},
		{
			ID:           "no_email_received",
			Category:     "activity",
			Label:        "Hasn't received an email in",
			ConfigType:   models.ConfigTypeDaysThreshold,
			Field:        "last_email_received_at",
			Unit:         "days",
			DefaultValue: 30,
		},
		{
			ID:           "no_email_opened",
			Category:     "activity",
			Label:        "Hasn't opened an email in",
			ConfigType:   models.ConfigTypeDaysThreshold,
			Field:        "last_email_opened_at",
			Unit:         "days",
			DefaultValue: 60,
		},
		{
			ID:         "last_contacted",
			Category:   "activity",
			Label:      "Last contacted",
			ConfigType: models.ConfigTypeDaysAgo,
			Field:      "last_contacted_at",
			Unit:       "days",
		},
	}
}
