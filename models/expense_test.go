package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpense_Validate(t *testing.T) {
	today := time.Date(2024, 6, 15, 10, 30, 0, 0, time.Local)

	tests := []struct {
		name    string
		amount  float64
		date    time.Time
		wantErr bool
	}{
		{"正常金额", 99.99, today, false},
		{"金额为零", 0, today, true},
		{"金额为负", -10, today, true},
		{"金额等于上限", 999999.99, today, false},
		{"金额超过上限", 1000000, today, true},
		{"日期为今天", 99, today, false},
		{"日期为明天", 99, today.AddDate(0, 0, 1), true},
		{"日期正好一年前", 99, today.AddDate(0, 0, -365), false},
		{"日期超过一年前", 99, today.AddDate(0, 0, -366), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &Expense{Amount: tt.amount, Date: tt.date}
			err := e.Validate(today)
			if tt.wantErr {
				require.Error(t, err)
				var ve *ValidationError
				assert.ErrorAs(t, err, &ve)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestExpense_DateLabels(t *testing.T) {
	e := &Expense{Date: time.Date(2024, 6, 15, 0, 0, 0, 0, time.Local)}

	assert.Equal(t, "June 2024", e.MonthLabel())
	assert.Equal(t, "2024", e.YearLabel())
	assert.Equal(t, "Week 24, 2024", e.WeekLabel())

	// 零值日期不产生标签
	empty := &Expense{}
	assert.Equal(t, "", empty.MonthLabel())
	assert.Equal(t, "", empty.YearLabel())
	assert.Equal(t, "", empty.WeekLabel())
}

func TestExpense_AmountDisplay(t *testing.T) {
	tests := []struct {
		name     string
		amount   float64
		currency string
		want     string
	}{
		{"人民币", 25.50, "CNY", "¥25.50"},
		{"美元", 99.99, "USD", "$99.99"},
		{"未知货币回退为代码", 10, "XYZ", "XYZ10.00"},
		{"金额为零回退", 0, "CNY", "$0.00"},
		{"货币缺失回退", 25.50, "", "$0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &Expense{Amount: tt.amount, Currency: tt.currency}
			assert.Equal(t, tt.want, e.AmountDisplay())
		})
	}
}

func TestExpense_DaysAgo(t *testing.T) {
	today := time.Date(2024, 6, 15, 23, 59, 0, 0, time.Local)

	e := &Expense{Date: time.Date(2024, 6, 10, 0, 0, 0, 0, time.Local)}
	assert.Equal(t, 5, e.DaysAgo(today))

	sameDay := &Expense{Date: time.Date(2024, 6, 15, 1, 0, 0, 0, time.Local)}
	assert.Equal(t, 0, sameDay.DaysAgo(today))

	empty := &Expense{}
	assert.Equal(t, 0, empty.DaysAgo(today))
}

func TestExpense_HasImageReceipt(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		filename string
		want     bool
	}{
		{"jpg 图片", "data/receipts/a.jpg", "票据.jpg", true},
		{"大写扩展名", "data/receipts/a.PNG", "receipt.PNG", true},
		{"gif 图片", "data/receipts/a.gif", "a.gif", true},
		{"pdf 不是图片", "data/receipts/a.pdf", "发票.pdf", false},
		{"无票据", "", "", false},
		{"只有路径没有文件名", "data/receipts/a.jpg", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &Expense{ReceiptPath: tt.path, ReceiptFilename: tt.filename}
			assert.Equal(t, tt.want, e.HasImageReceipt())
		})
	}
}

func TestExpense_CanDelete(t *testing.T) {
	assert.True(t, (&Expense{State: StateDraft}).CanDelete())
	assert.True(t, (&Expense{State: StateSubmitted}).CanDelete())
	assert.True(t, (&Expense{State: StateRejected}).CanDelete())
	assert.False(t, (&Expense{State: StateApproved}).CanDelete())
	assert.False(t, (&Expense{State: StatePaid}).CanDelete())
}

func TestExpense_SharedWithUser(t *testing.T) {
	e := &Expense{
		IsShared:   true,
		SharedWith: []User{{ID: 2}, {ID: 3}},
	}
	assert.True(t, e.SharedWithUser(2))
	assert.False(t, e.SharedWithUser(5))

	// 未开启共享时名单不生效
	off := &Expense{IsShared: false, SharedWith: []User{{ID: 2}}}
	assert.False(t, off.SharedWithUser(2))
}

func TestApplyAction(t *testing.T) {
	tests := []struct {
		name    string
		state   string
		action  string
		want    string
		wantErr bool
	}{
		{"草稿提交", StateDraft, ActionSubmit, StateSubmitted, false},
		{"已提交批准", StateSubmitted, ActionApprove, StateApproved, false},
		{"已提交驳回", StateSubmitted, ActionReject, StateRejected, false},
		{"已批准支付", StateApproved, ActionMarkPaid, StatePaid, false},
		{"草稿退回草稿", StateDraft, ActionReset, StateDraft, false},
		{"已驳回退回草稿", StateRejected, ActionReset, StateDraft, false},
		{"已批准退回草稿", StateApproved, ActionReset, StateDraft, false},
		{"已支付不可退回", StatePaid, ActionReset, "", true},
		{"草稿不可批准", StateDraft, ActionApprove, "", true},
		{"草稿不可支付", StateDraft, ActionMarkPaid, "", true},
		{"已提交不可再提交", StateSubmitted, ActionSubmit, "", true},
		{"已支付不可驳回", StatePaid, ActionReject, "", true},
		{"未知动作", StateDraft, "archive", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := ApplyAction(tt.state, tt.action)
			if tt.wantErr {
				require.Error(t, err)
				var oe *OperationNotAllowedError
				assert.ErrorAs(t, err, &oe)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, next)
			}
		})
	}
}

func TestValidPaymentMethod(t *testing.T) {
	assert.True(t, ValidPaymentMethod(PaymentCash))
	assert.True(t, ValidPaymentMethod(PaymentMobile))
	assert.False(t, ValidPaymentMethod("bitcoin"))
	assert.False(t, ValidPaymentMethod(""))
}

func TestCurrencySymbol(t *testing.T) {
	assert.Equal(t, "¥", CurrencySymbol("CNY"))
	assert.Equal(t, "$", CurrencySymbol("usd"))
	assert.Equal(t, "ABC", CurrencySymbol("ABC"))
}
