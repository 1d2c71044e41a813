package config

import (
	"time"
)

const (
	NameUnknown = "unknown"

	// 存储桶内的目录布局
	PrefixUnprocessed  = "unprocessed_records/"
	PrefixProcessed    = "processed_records/"
	PrefixTraces       = "traces/"
	PrefixProfiles     = "profiles/"
	PrefixProfileIndex = "profile_index/"
)

// for root
var (
	Debug = false
)

// viper keys, also used as flag names
const (
	KeyStore        = "store"
	KeyBucket       = "bucket"
	KeyRegion       = "region"
	KeyEndpoint     = "endpoint"
	KeyLocalDir     = "local-dir"
	KeyFetchWorker  = "fetch-workers"
	KeyOlapDSN      = "olap-dsn"
	KeyExporter     = "exporter"
	KeyOTLPAddr     = "otlp-endpoint"
	KeyOTLPInsecure = "otlp-insecure"
	KeySchedule     = "schedule"
	KeyMetricsAddr  = "metrics-addr"
)

const (
	StoreS3    = "s3"
	StoreLocal = "local"

	ExporterNone   = "none"
	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"
)

// for cmd process
var (
	// 并发拉取 record 的数量，合并过程本身是单线程的
	DefaultFetchWorkers = 8

	DefaultLocalDir = "./seefaas-data"
)

// for cmd serve
var (
	// 两次 ingest 之间的间隔
	DefaultSchedule    = "@every 1m"
	DefaultMetricsAddr = ":9464"
	ShutdownTimeout    = 5 * time.Second
)

// for pkg storage
var (
	MaxNumCachedTrace   = 256
	MaxNumCachedProfile = 1024
)

// for DB
var (
	// 测试账号，留空即关闭 OLAP
	SEEFAAS_DEFAULT_DSN = ""

	// DATETIME(6) 的写入格式
	DATE6 = "2006-01-02 15:04:05.000000"
)
