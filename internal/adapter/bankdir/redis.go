// Package bankdir resolves bank names to the clearing codes the payment
// gateway expects. The table lives in a Redis hash so new banks are data,
// not code.
package bankdir

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"sme-escrow/internal/domain/errs"

	"github.com/redis/go-redis/v9"
)

const DefaultKey = "bankdir:codes"

// StarterCodes seeds a fresh directory with the common Nigerian banks.
var StarterCodes = map[string]string{
	"access bank":            "044",
	"citibank":               "023",
	"ecobank":                "050",
	"fidelity bank":          "070",
	"first bank":             "011",
	"guaranty trust":         "058",
	"gtbank":                 "058",
	"united bank for africa": "033",
	"uba":                    "033",
	"zenith bank":            "057",
}

type Directory struct {
	rdb *redis.Client
	key string
}

func New(rdb *redis.Client) *Directory { return &Directory{rdb: rdb, key: DefaultKey} }

func normalize(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// CodeFor returns the code for bankName. An exact match wins; otherwise the
// longest registered name contained in bankName is used.
func (d *Directory) CodeFor(ctx context.Context, bankName string) (string, error) {
	name := normalize(bankName)
	if name == "" {
		return "", errs.Invalid("bank_name", "is required")
	}
	code, err := d.rdb.HGet(ctx, d.key, name).Result()
	if err == nil {
		return code, nil
	}
	if !errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("bank directory lookup: %w", err)
	}

	all, err := d.rdb.HGetAll(ctx, d.key).Result()
	if err != nil {
		return "", fmt.Errorf("bank directory scan: %w", err)
	}
	best := ""
	for k, v := range all {
		if strings.Contains(name, k) && len(k) > len(best) {
			best, code = k, v
		}
	}
	if best == "" {
		return "", errs.Invalid("bank_name", fmt.Sprintf("unknown bank %q", bankName))
	}
	return code, nil
}

// Set registers or replaces one bank.
func (d *Directory) Set(ctx context.Context, bankName, code string) error {
	name := normalize(bankName)
	if name == "" || strings.TrimSpace(code) == "" {
		return errs.Invalid("bank", "name and code are required")
	}
	return d.rdb.HSet(ctx, d.key, name, strings.TrimSpace(code)).Err()
}

// Seed adds entries that are not registered yet and reports how many were added.
func (d *Directory) Seed(ctx context.Context, codes map[string]string) (int, error) {
	added := 0
	for name, code := range codes {
		ok, err := d.rdb.HSetNX(ctx, d.key, normalize(name), code).Result()
		if err != nil {
			return added, err
		}
		if ok {
			added++
		}
	}
	return added, nil
}
