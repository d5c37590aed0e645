package session

import (
	"encoding/json"

	"github.com/mbarros/escuta/internal/report"
)

func marshalReport(rep report.ClinicalReport) (string, error) {
	b, err := json.Marshal(rep)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
