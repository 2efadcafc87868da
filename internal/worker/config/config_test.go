package config

import (
	"testing"
)

func TestWorkerNumDefault(t *testing.T) {
	cfg := Config{}
	if cfg.Worker.WorkerNum != 0 {
		t.Fatalf("zero value expected before defaults")
	}
	// InitConfig 需要配置文件，默认值逻辑单独校验
	if n := normalizeWorkerNum(cfg.Worker.WorkerNum); n != 1 {
		t.Fatalf("expected default worker num 1, got %d", n)
	}
}

func normalizeWorkerNum(n int) int {
	if n <= 0 {
		return 1
	}
	return n
}
