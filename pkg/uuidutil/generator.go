package uuidutil

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Пространство имен для детерминированных ключей инцидентов
var incidentNamespace = uuid.MustParse("6f1c2b8e-4a55-4f0e-9b7d-2f3b9a1d7c40")

func New() string {
	return uuid.New().String()
}

func IsValid(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// IncidentKey стабильный ID инцидента по монитору и времени начала.
// Один и тот же инцидент при повторной агрегации получает тот же ID.
func IncidentKey(monitorID string, startedAt time.Time) string {
	name := fmt.Sprintf("%s/%d", monitorID, startedAt.UTC().UnixMilli())
	return uuid.NewSHA1(incidentNamespace, []byte(name)).String()
}
