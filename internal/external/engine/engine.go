package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// EngineResolver вычисляет круг участников розыгрыша через сервис engine
type EngineResolver struct{}

type EligibleResponse struct {
	Users []string `json:"users"`
}

func (e EngineResolver) Eligible(ctx context.Context, criteria map[string]any) (users []string, err error) {

	// config
	host := os.Getenv("ENGINE_HOST")
	if host == "" {
		return nil, fmt.Errorf("env ENGINE_HOST is not set")
	}
	port := os.Getenv("ENGINE_PORT")
	if port == "" {
		return nil, fmt.Errorf("env ENGINE_PORT is not set")
	}

	criteriaData, err := json.Marshal(criteria)
	if err != nil {
		return nil, err
	}

	// запрос круга участников
	client := &http.Client{Timeout: 5 * time.Second}
	req, err := http.NewRequestWithContext(ctx, "POST", host+":"+port+"/eligible", bytes.NewBuffer(criteriaData))
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Engine service HTTP error: %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	eligible := &EligibleResponse{}
	err = json.Unmarshal(body, eligible)
	if err != nil {
		return nil, err
	}

	return eligible.Users, nil
}
