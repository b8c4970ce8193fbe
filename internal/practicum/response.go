package practicum

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/hitoshi/hwnotify/internal/model"
)

const (
	keyHomeworks   = "homeworks"
	keyCurrentDate = "current_date"
)

// CheckResponse はAPIレスポンスの形を検証し、型付きのStatusResponseにデコードする。
//
//   - ボディがオブジェクトでない場合はTypeKindError
//   - homeworks または current_date が欠けている場合はSchemaError
//   - homeworks が配列でない場合（nullを含む）はTypeKindError
//
// homeworksの順序はAPIの順序のまま保持され、空でもよい。
func CheckResponse(raw json.RawMessage) (*model.StatusResponse, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return nil, model.NewTypeKindError("ответ не является словарём", err)
	}

	homeworksRaw, ok := fields[keyHomeworks]
	if !ok {
		return nil, model.NewSchemaError(keyHomeworks)
	}
	currentDateRaw, ok := fields[keyCurrentDate]
	if !ok {
		return nil, model.NewSchemaError(keyCurrentDate)
	}

	var items []json.RawMessage
	if err := json.Unmarshal(homeworksRaw, &items); err != nil || isNull(homeworksRaw) {
		return nil, model.NewTypeKindError("homeworks не является списком", err)
	}

	var currentDate int64
	if err := json.Unmarshal(currentDateRaw, &currentDate); err != nil || isNull(currentDateRaw) {
		return nil, model.NewTypeKindError("current_date не является целым числом", err)
	}

	homeworks := make([]model.Homework, 0, len(items))
	for i, item := range items {
		hw, err := decodeHomework(i, item)
		if err != nil {
			return nil, err
		}
		homeworks = append(homeworks, hw)
	}

	return &model.StatusResponse{
		Homeworks:   homeworks,
		CurrentDate: currentDate,
	}, nil
}

func decodeHomework(index int, raw json.RawMessage) (model.Homework, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return model.Homework{}, model.NewTypeKindError(fmt.Sprintf("homeworks[%d] не является словарём", index), err)
	}

	var hw model.Homework
	if err := json.Unmarshal(raw, &hw); err != nil {
		return model.Homework{}, model.NewTypeKindError(fmt.Sprintf("homeworks[%d] содержит поле неверного типа", index), err)
	}
	return hw, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
