package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// PaymentPolicy carries the tunables of payment recording that operators may
// change without a restart.
type PaymentPolicy struct {
	ReferencePrefix    string        `mapstructure:"reference_prefix"`
	ReceiptPrefix      string        `mapstructure:"receipt_prefix"`
	TransactionTimeout time.Duration `mapstructure:"transaction_timeout"`
	MaxNotesLength     int           `mapstructure:"max_notes_length"`
}

func DefaultPaymentPolicy() PaymentPolicy {
	return PaymentPolicy{
		ReferencePrefix:    "PAY",
		ReceiptPrefix:      "RCP",
		TransactionTimeout: 5 * time.Second,
		MaxNotesLength:     500,
	}
}

type PaymentPolicyHolder struct {
	current atomic.Value // holds PaymentPolicy
}

// NewStaticPaymentPolicyHolder wraps a fixed policy, used by tools and tests.
func NewStaticPaymentPolicyHolder(policy PaymentPolicy) *PaymentPolicyHolder {
	holder := &PaymentPolicyHolder{}
	holder.current.Store(normalizePaymentPolicy(policy))
	return holder
}

func NewPaymentPolicyHolder() (*PaymentPolicyHolder, error) {
	v := viper.New()

	v.SetConfigName("payment")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/revenue/config")
	v.AddConfigPath("/etc/revenue")
	v.AddConfigPath(".")

	v.SetEnvPrefix("REVENUE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultPaymentPolicy()
	v.SetDefault("payment.reference_prefix", defaults.ReferencePrefix)
	v.SetDefault("payment.receipt_prefix", defaults.ReceiptPrefix)
	v.SetDefault("payment.transaction_timeout", defaults.TransactionTimeout)
	v.SetDefault("payment.max_notes_length", defaults.MaxNotesLength)

	configFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		configFound = false
	}

	var policy PaymentPolicy
	if err := v.UnmarshalKey("payment", &policy); err != nil {
		return nil, err
	}
	policy = normalizePaymentPolicy(policy)
	if err := validatePaymentPolicy(policy); err != nil {
		return nil, err
	}

	holder := &PaymentPolicyHolder{}
	holder.current.Store(policy)

	if configFound {
		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			var updated PaymentPolicy
			if err := v.UnmarshalKey("payment", &updated); err != nil {
				log.Printf("[payment-policy] reload failed: %v", err)
				return
			}
			updated = normalizePaymentPolicy(updated)
			if err := validatePaymentPolicy(updated); err != nil {
				log.Printf("[payment-policy] invalid policy ignored: %v", err)
				return
			}
			holder.current.Store(updated)
			log.Printf("[payment-policy] reloaded from %s", e.Name)
		})
	}

	return holder, nil
}

func (h *PaymentPolicyHolder) Get() PaymentPolicy {
	if h == nil {
		return DefaultPaymentPolicy()
	}
	policy, ok := h.current.Load().(PaymentPolicy)
	if !ok {
		return DefaultPaymentPolicy()
	}
	return policy
}

func normalizePaymentPolicy(policy PaymentPolicy) PaymentPolicy {
	defaults := DefaultPaymentPolicy()
	policy.ReferencePrefix = strings.ToUpper(strings.TrimSpace(policy.ReferencePrefix))
	if policy.ReferencePrefix == "" {
		policy.ReferencePrefix = defaults.ReferencePrefix
	}
	policy.ReceiptPrefix = strings.ToUpper(strings.TrimSpace(policy.ReceiptPrefix))
	if policy.ReceiptPrefix == "" {
		policy.ReceiptPrefix = defaults.ReceiptPrefix
	}
	if policy.TransactionTimeout <= 0 {
		policy.TransactionTimeout = defaults.TransactionTimeout
	}
	if policy.MaxNotesLength <= 0 {
		policy.MaxNotesLength = defaults.MaxNotesLength
	}
	return policy
}

func validatePaymentPolicy(policy PaymentPolicy) error {
	if policy.ReferencePrefix == policy.ReceiptPrefix {
		return errors.New("payment.reference_prefix and payment.receipt_prefix must differ")
	}
	if len(policy.ReferencePrefix) > 8 || len(policy.ReceiptPrefix) > 8 {
		return errors.New("payment prefixes are limited to 8 characters")
	}
	return nil
}
