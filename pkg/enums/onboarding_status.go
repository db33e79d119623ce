package enums

import "fmt"

// OnboardingStatus maps to the onboarding_status_enum enum in Postgres.
type OnboardingStatus string

const (
	OnboardingStatusPending    OnboardingStatus = "pending"
	OnboardingStatusOnboarding OnboardingStatus = "onboarding"
	OnboardingStatusActive     OnboardingStatus = "active"
	OnboardingStatusRestricted OnboardingStatus = "restricted"
)

var validOnboardingStatuses = []OnboardingStatus{
	OnboardingStatusPending,
	OnboardingStatusOnboarding,
	OnboardingStatusActive,
	OnboardingStatusRestricted,
}

// String implements fmt.Stringer.
func (s OnboardingStatus) String() string {
	return string(s)
}

// IsValid reports whether the value matches the canonical onboarding enum.
func (s OnboardingStatus) IsValid() bool {
	for _, candidate := range validOnboardingStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseOnboardingStatus converts raw input into OnboardingStatus.
func ParseOnboardingStatus(value string) (OnboardingStatus, error) {
	for _, candidate := range validOnboardingStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid onboarding status %q", value)
}
