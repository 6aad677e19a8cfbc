package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// CrateFields 提供 crate 标识字段，供解析/入库流程的日志复用。
func CrateFields(origin, cratePath string) logrus.Fields {
	return logrus.Fields{
		"origin":     origin,
		"crate_path": cratePath,
	}
}

// FetchFields 提供上游请求字段，记录命中状态便于评估缓存效果。
func FetchFields(upstream, url string, cacheHit bool) logrus.Fields {
	return logrus.Fields{
		"upstream":  upstream,
		"url":       url,
		"cache_hit": cacheHit,
	}
}
