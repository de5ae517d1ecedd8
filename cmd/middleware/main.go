// cmd/middleware/main.go
package main

import (
	"context"
	"log"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"

	"swiftlogistics/internal/pkg/bootstrap"
	"swiftlogistics/internal/pkg/httpclient"
	"swiftlogistics/internal/pkg/logger"
	"swiftlogistics/internal/pkg/mq"
	"swiftlogistics/internal/pkg/session"
	"swiftlogistics/internal/service/notify"
	"swiftlogistics/internal/service/order/application"
	"swiftlogistics/internal/service/order/domain"
	"swiftlogistics/internal/service/order/domain/port"
	"swiftlogistics/internal/service/order/infrastructure"
	"swiftlogistics/internal/service/order/infrastructure/adapter"
	"swiftlogistics/internal/service/order/infrastructure/lock"
	"swiftlogistics/internal/service/order/infrastructure/routing"
	"swiftlogistics/internal/service/order/interfaces"
)

const (
	serviceName     = "middleware"
	servicePort     = 8080
	consumerGroupID = "middleware-orchestrator"
)

// main 函数是应用的"组装根" (Composition Root)
// 它的核心职责是：创建并组装所有依赖项，然后启动应用。
func main() {
	bootstrap.Init()
	logger.Init(serviceName)
	cfg := bootstrap.GetCurrentConfig()

	// 持久化
	db, err := gorm.Open(gormmysql.Open(cfg.Infra.Mysql.DSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect mysql: %v", err)
	}
	if err := db.AutoMigrate(&infrastructure.OrderModel{}, &infrastructure.DeliveryUpdateModel{}); err != nil {
		log.Fatalf("failed to migrate schema: %v", err)
	}
	orderRepo := infrastructure.NewGormOrderRepository(db)
	updateRepo := infrastructure.NewGormDeliveryUpdateRepository(db)

	// 订单锁：配置了 ZooKeeper 用分布式锁，否则退回进程内锁
	var locker port.OrderLocker
	var zkLocker *lock.ZkOrderLocker
	if len(cfg.Infra.Zookeeper.Servers) > 0 {
		zkLocker, err = lock.NewZkOrderLocker(cfg.Infra.Zookeeper.Servers)
		if err != nil {
			log.Fatalf("failed to connect zookeeper: %v", err)
		}
		locker = zkLocker
		log.Println("✅ Using ZooKeeper distributed order lock")
	} else {
		locker = lock.NewLocalOrderLocker()
		log.Println("⚠️ ZooKeeper not configured, using in-process order lock")
	}

	// 派单策略
	policy, err := routing.NewCelDispatchPolicy(cfg.App.DispatchRules)
	if err != nil {
		log.Fatalf("failed to compile dispatch rules: %v", err)
	}

	// 三个外部系统的出站适配器
	timeout := cfg.AdapterTimeout()
	httpClient := httpclient.NewClient(otel.Tracer(serviceName))
	cms := adapter.NewCMSSoapAdapter(httpClient, cfg.App.CMS.BaseURL, timeout)
	wms := adapter.NewWMSTcpAdapter(cfg.App.WMS.Addr, timeout)
	ros := adapter.NewROSHttpAdapter(httpClient, cfg.App.ROS.BaseURL, cfg.App.ROS.APIKey, policy, timeout)

	// 事件总线与实时推送
	publisher := adapter.NewEventKafkaAdapter(cfg.Infra.Kafka.Brokers)
	nodeID := serviceName + "-" + uuid.New().String()[:8]
	sessionMgr := session.NewManager(cfg.Infra.Redis.Addr)
	hub := notify.NewHub(nodeID, sessionMgr)
	go hub.Run()

	// 应用服务与驱动适配器
	appSvc := application.NewOrderApplicationService(
		orderRepo, updateRepo, otel.Tracer(serviceName),
		cms, wms, ros, publisher, hub, locker,
	)
	reader := mq.NewKafkaReader(cfg.Infra.Kafka.Brokers, domain.TopicOrderSubmitted, consumerGroupID)
	consumer := infrastructure.NewSubmissionConsumerAdapter(reader, appSvc)
	consumer.Start(context.Background())

	handler := interfaces.NewOrderHandler(appSvc)

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        servicePort,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			handler.RegisterRoutes(appCtx.Mux)
			appCtx.Mux.HandleFunc("/ws", hub.ServeWS)
		},
		OnShutdown: func(ctx context.Context) {
			consumer.Stop()
			if err := publisher.Close(); err != nil {
				log.Printf("Error closing event publisher: %v", err)
			}
			if zkLocker != nil {
				zkLocker.Close()
			}
		},
	})
}
