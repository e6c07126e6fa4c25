package service

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"dormexpo/models"

	chart "github.com/wcharczuk/go-chart/v2"
)

// ErrNoChartData 没有可绘制的数据
var ErrNoChartData = errors.New("没有可绘制的数据")

// RenderCategoryPieChart 把按类别汇总的金额渲染为饼图 PNG。
// 切片按金额降序排列，图例带金额。
func RenderCategoryPieChart(stats models.MonthlyStats, title string, w io.Writer) error {
	if len(stats.ByCategory) == 0 {
		return ErrNoChartData
	}

	type slice struct {
		name   string
		amount float64
	}
	slices := make([]slice, 0, len(stats.ByCategory))
	for name, amount := range stats.ByCategory {
		slices = append(slices, slice{name: name, amount: amount})
	}
	sort.Slice(slices, func(i, j int) bool {
		if slices[i].amount != slices[j].amount {
			return slices[i].amount > slices[j].amount
		}
		return slices[i].name < slices[j].name
	})

	values := make([]chart.Value, 0, len(slices))
	for _, s := range slices {
		values = append(values, chart.Value{
			Value: s.amount,
			Label: fmt.Sprintf("%s %.2f", s.name, s.amount),
		})
	}

	pie := chart.PieChart{
		Title:  title,
		Width:  600,
		Height: 600,
		Values: values,
	}

	return pie.Render(chart.PNG, w)
}
