package practicum

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/hitoshi/hwnotify/internal/model"
)

func TestCheckResponse_ValidResponse(t *testing.T) {
	raw := json.RawMessage(`{
		"homeworks": [
			{"id": 124, "homework_name": "username__hw_python_oop.zip", "status": "approved",
			 "reviewer_comment": "Всё нравится", "lesson_name": "Итоговый проект", "date_updated": "2020-02-13T14:40:57Z"},
			{"homework_name": "hw2", "status": "rejected", "reviewer_comment": null}
		],
		"current_date": 1581604970
	}`)

	resp, err := CheckResponse(raw)
	if err != nil {
		t.Fatalf("CheckResponse がエラーを返した: %v", err)
	}
	if resp.CurrentDate != 1581604970 {
		t.Errorf("CurrentDate = %d, want 1581604970", resp.CurrentDate)
	}
	if len(resp.Homeworks) != 2 {
		t.Fatalf("len(Homeworks) = %d, want 2", len(resp.Homeworks))
	}
	first := resp.Homeworks[0]
	if first.Name != "username__hw_python_oop.zip" || first.Status != "approved" {
		t.Errorf("Homeworks[0] = %+v", first)
	}
	if resp.Homeworks[1].Name != "hw2" {
		t.Errorf("APIの順序が維持されるべき: %+v", resp.Homeworks)
	}
}

func TestCheckResponse_IgnoresUnusedFieldTypes(t *testing.T) {
	raw := json.RawMessage(`{
		"homeworks": [
			{"id": "124", "homework_name": "hw1", "status": "approved",
			 "reviewer_comment": {"text": "ok"}, "lesson_name": 7, "date_updated": false}
		],
		"current_date": 1581604970
	}`)

	resp, err := CheckResponse(raw)
	if err != nil {
		t.Fatalf("通知に使わないフィールドの型は検証しないべき: %v", err)
	}
	if first := resp.First(); first.Name != "hw1" || first.Status != "approved" {
		t.Errorf("Homeworks[0] = %+v", first)
	}
}

func TestCheckResponse_EmptyHomeworks(t *testing.T) {
	resp, err := CheckResponse(json.RawMessage(`{"homeworks": [], "current_date": 1000}`))
	if err != nil {
		t.Fatalf("CheckResponse がエラーを返した: %v", err)
	}
	if len(resp.Homeworks) != 0 {
		t.Errorf("len(Homeworks) = %d, want 0", len(resp.Homeworks))
	}
	if resp.First() != nil {
		t.Error("空の場合 First は nil であるべき")
	}
}

func TestCheckResponse_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want error
	}{
		{"array body", `[{"homeworks": []}]`, model.ErrTypeKind},
		{"string body", `"homeworks"`, model.ErrTypeKind},
		{"null body", `null`, model.ErrTypeKind},
		{"empty object", `{}`, model.ErrSchema},
		{"missing homeworks", `{"current_date": 1000}`, model.ErrSchema},
		{"missing current_date", `{"homeworks": []}`, model.ErrSchema},
		{"homeworks is object", `{"homeworks": {"homework_name": "hw1"}, "current_date": 1000}`, model.ErrTypeKind},
		{"homeworks is string", `{"homeworks": "hw1", "current_date": 1000}`, model.ErrTypeKind},
		{"homeworks is null", `{"homeworks": null, "current_date": 1000}`, model.ErrTypeKind},
		{"current_date is string", `{"homeworks": [], "current_date": "yesterday"}`, model.ErrTypeKind},
		{"current_date is null", `{"homeworks": [], "current_date": null}`, model.ErrTypeKind},
		{"homework is string", `{"homeworks": ["hw1"], "current_date": 1000}`, model.ErrTypeKind},
		{"status is number", `{"homeworks": [{"homework_name": "hw1", "status": 1}], "current_date": 1000}`, model.ErrTypeKind},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := CheckResponse(json.RawMessage(tt.raw))
			if !errors.Is(err, tt.want) {
				t.Fatalf("CheckResponse(%s) err = %v, want %v", tt.raw, err, tt.want)
			}
			if resp != nil {
				t.Errorf("エラー時は nil を返すべき, got %+v", resp)
			}
		})
	}
}

func TestCheckResponse_MissingKeyNamedInError(t *testing.T) {
	_, err := CheckResponse(json.RawMessage(`{"homeworks": []}`))
	if err == nil {
		t.Fatal("expected error")
	}
	var pe *model.PollError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *model.PollError, got %T", err)
	}
	if !strings.Contains(pe.Message, "current_date") {
		t.Errorf("欠けているキー名がメッセージに含まれるべき, got %q", pe.Message)
	}
}
