package models

// MonthlyStats 某用户某自然月的开销汇总
type MonthlyStats struct {
	Total       float64            `json:"total"`
	Count       int                `json:"count"`
	Average     float64            `json:"average"`
	ByCategory  map[string]float64 `json:"by_category"`
	TopCategory *string            `json:"top_category"`
}

// StatRecord 汇总输入：一条记录对应的类别名与金额
type StatRecord struct {
	Category string
	Amount   float64
}

// ComputeMonthlyStats 对记录集做纯函数汇总：总额、笔数、均值、
// 按类别小计以及金额最高的类别。空集时均值为 0，TopCategory 为 nil。
// 相同的输入总是得到相同的结果，不修改入参。
func ComputeMonthlyStats(records []StatRecord) MonthlyStats {
	stats := MonthlyStats{
		ByCategory: make(map[string]float64),
	}

	for _, r := range records {
		stats.Total += r.Amount
		stats.Count++
		stats.ByCategory[r.Category] += r.Amount
	}

	if stats.Count > 0 {
		stats.Average = stats.Total / float64(stats.Count)
	}

	// 金额最高的类别；并列时取名称字典序较小者，保证结果稳定
	var top string
	var topAmount float64
	for name, amount := range stats.ByCategory {
		if top == "" || amount > topAmount || (amount == topAmount && name < top) {
			top = name
			topAmount = amount
		}
	}
	if top != "" {
		stats.TopCategory = &top
	}

	return stats
}
