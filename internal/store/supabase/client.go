// Package supabase implements the store repositories against a hosted
// Supabase project, one table per collection, queried through postgrest.
package supabase

import (
	"strings"

	supa "github.com/supabase-community/supabase-go"

	"agendapastoral/backend/internal/store"
)

const (
	appointmentsTable = "agendamentos"
	historyTable      = "agendamentos_historico"
	pastorsTable      = "pastores"
	schedulesTable    = "escalas"
	configTable       = "configuracoes_sistema"
)

func Open(projectURL, serviceKey string) (*supa.Client, error) {
	return supa.NewClient(projectURL, serviceKey, nil)
}

// mapError converts postgrest failures to store sentinels. PGRST116 is
// "zero rows for a single-object request"; PGRST205 and 42P01 both mean the
// relation is missing.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "PGRST116") {
		return store.ErrNotFound
	}
	if strings.Contains(msg, "PGRST205") || strings.Contains(msg, "42P01") {
		return store.ErrHistoryUnavailable
	}
	return err
}
