package discovery

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/mock/gomock"

	"github.com/oyaguma3/vmam/apps/vmam/internal/mocks"
	"github.com/oyaguma3/vmam/pkg/model"
)

func TestMultiSourceDedupe(t *testing.T) {
	ctrl := gomock.NewController(t)
	first := mocks.NewMockSource(ctrl)
	second := mocks.NewMockSource(ctrl)

	first.EXPECT().Devices(gomock.Any(), 0).Return([]model.Device{
		{MAC: "000018ff12dd", VlanID: 110, Source: model.SourceAccounting},
	}, nil)
	second.EXPECT().Devices(gomock.Any(), 0).Return([]model.Device{
		{MAC: "00:00:18:FF:12:DD", VlanID: 111, Source: model.SourceHTTP},
		{MAC: "aabbccddeeff", Source: model.SourceHTTP},
	}, nil)

	got, err := NewMultiSource(first, second).Devices(context.Background(), 0)
	if err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	// 先に現れた取得元が優先される
	if got[0].VlanID != 110 || got[0].Source != model.SourceAccounting {
		t.Errorf("device[0] = %+v", got[0])
	}
}

func TestMultiSourceLimit(t *testing.T) {
	ctrl := gomock.NewController(t)
	first := mocks.NewMockSource(ctrl)
	second := mocks.NewMockSource(ctrl)

	first.EXPECT().Devices(gomock.Any(), 2).Return([]model.Device{
		{MAC: "000000000001"}, {MAC: "000000000002"},
	}, nil)
	// limitに達した時点で残りの取得元は呼ばない
	second.EXPECT().Devices(gomock.Any(), gomock.Any()).Times(0)

	got, err := NewMultiSource(first, second).Devices(context.Background(), 2)
	if err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("len = %d, want 2", len(got))
	}
}

func TestMultiSourcePartialFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	failing := mocks.NewMockSource(ctrl)
	ok := mocks.NewMockSource(ctrl)

	failing.EXPECT().Devices(gomock.Any(), 0).Return(nil, ErrSourceUnavailable)
	ok.EXPECT().Devices(gomock.Any(), 0).Return([]model.Device{{MAC: "000018ff12dd"}}, nil)

	got, err := NewMultiSource(failing, ok).Devices(context.Background(), 0)
	if err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("len = %d, want 1", len(got))
	}
}

func TestMultiSourceAllFailed(t *testing.T) {
	ctrl := gomock.NewController(t)
	a := mocks.NewMockSource(ctrl)
	b := mocks.NewMockSource(ctrl)

	a.EXPECT().Devices(gomock.Any(), 0).Return(nil, ErrSourceUnavailable)
	b.EXPECT().Devices(gomock.Any(), 0).Return(nil, ErrInvalidResponse)

	_, err := NewMultiSource(a, b).Devices(context.Background(), 0)
	if !errors.Is(err, ErrSourceUnavailable) || !errors.Is(err, ErrInvalidResponse) {
		t.Fatalf("両方のエラーを期待: %v", err)
	}
}
