package testtool

import (
	"net/http"
	_ "net/http/pprof" // 匯入後會自動註冊 pprof endpoint

	"rural_skills_service/pkg/config"
	"rural_skills_service/pkg/logger"

	"go.uber.org/zap"
)

// pprofAddr 只監聽本機
const pprofAddr = "127.0.0.1:6060"

// StartPprof 非 production 時啟動 pprof 監控伺服器
//
//	curl http://127.0.0.1:6060/debug/pprof/
//	go tool pprof http://127.0.0.1:6060/debug/pprof/goroutine
func StartPprof() {
	if config.IsProduction() {
		logger.Log.Info("Production environment detected, pprof is disabled.")
		return
	}

	go func() {
		logger.Log.Info("Starting pprof server", zap.String("addr", pprofAddr))
		if err := http.ListenAndServe(pprofAddr, nil); err != nil {
			logger.Log.Warn("pprof server failed", zap.Error(err))
		}
	}()
}
