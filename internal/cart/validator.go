package cart

import (
	"fmt"
	"time"
)

// ValidateItems applies the pre-checkout rules. Each rule runs independently
// and appends its own message; the cart is valid only when none fired.
func ValidateItems(items []LineItem, now time.Time) Validation {
	var errs []string

	if len(items) == 0 {
		errs = append(errs, "cart is empty")
	}

	for _, item := range items {
		if item.ScheduleDate.Before(now) {
			errs = append(errs, fmt.Sprintf("event %q has already taken place", item.Event.Name))
		}
	}

	for _, item := range items {
		if item.PersonalInfo != nil && !item.PersonalInfo.Complete() {
			errs = append(errs, fmt.Sprintf("ticket %q is missing buyer name or email", item.TicketName))
		}
	}

	return Validation{IsValid: len(errs) == 0, Errors: errs}
}
