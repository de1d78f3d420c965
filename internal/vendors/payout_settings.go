package vendors

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/angelmondragon/vendorledger-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vendorledger-backend/pkg/errors"
	"github.com/angelmondragon/vendorledger-backend/pkg/types"
)

var settingsValidator = validator.New()

type bankTransferDetails struct {
	BankName      string `validate:"required,max=120"`
	AccountName   string `validate:"required,max=120"`
	AccountNumber string `validate:"required,min=4,max=34,alphanum"`
	RoutingNumber string `validate:"omitempty,max=34,alphanum"`
}

type paypalDetails struct {
	PayPalEmail string `validate:"required,email,max=254"`
}

type momoDetails struct {
	MoMoNumber   string `validate:"required,min=7,max=20,numeric"`
	MoMoProvider string `validate:"required,max=60"`
}

// normalizePayoutSettings validates details against the chosen method and
// returns only the fields that method uses.
func normalizePayoutSettings(input PayoutSettingsInput) (enums.PayoutMethod, types.PayoutDetails, error) {
	if !input.Method.IsValid() {
		return "", types.PayoutDetails{}, pkgerrors.New(pkgerrors.CodeValidation, "unsupported payout method")
	}
	details := input.Details.Normalized()
	details.MoMoNumber = strings.TrimPrefix(details.MoMoNumber, "+")

	var (
		target any
		kept   types.PayoutDetails
	)
	switch input.Method {
	case enums.PayoutMethodBankTransfer:
		target = bankTransferDetails{
			BankName:      details.BankName,
			AccountName:   details.AccountName,
			AccountNumber: details.AccountNumber,
			RoutingNumber: details.RoutingNumber,
		}
		kept = types.PayoutDetails{
			BankName:      details.BankName,
			AccountName:   details.AccountName,
			AccountNumber: details.AccountNumber,
			RoutingNumber: details.RoutingNumber,
		}
	case enums.PayoutMethodPayPal:
		target = paypalDetails{PayPalEmail: details.PayPalEmail}
		kept = types.PayoutDetails{PayPalEmail: details.PayPalEmail}
	case enums.PayoutMethodMoMo:
		target = momoDetails{MoMoNumber: details.MoMoNumber, MoMoProvider: details.MoMoProvider}
		kept = types.PayoutDetails{MoMoNumber: details.MoMoNumber, MoMoProvider: details.MoMoProvider}
	default:
		return input.Method, types.PayoutDetails{}, nil
	}

	if err := settingsValidator.Struct(target); err != nil {
		return "", types.PayoutDetails{}, detailsError(err)
	}
	return input.Method, kept, nil
}

func detailsError(err error) error {
	fields := map[string]string{}
	if errs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range errs {
			fields[detailsFieldName(fe.Field())] = fe.Tag()
		}
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "invalid payout details").WithDetails(map[string]any{
		"reason": "invalid_payout_details",
		"fields": fields,
	})
}

func detailsFieldName(field string) string {
	switch field {
	case "BankName":
		return "bank_name"
	case "AccountName":
		return "account_name"
	case "AccountNumber":
		return "account_number"
	case "RoutingNumber":
		return "routing_number"
	case "PayPalEmail":
		return "paypal_email"
	case "MoMoNumber":
		return "momo_number"
	case "MoMoProvider":
		return "momo_provider"
	}
	return strings.ToLower(field)
}
