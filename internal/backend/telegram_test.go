package backend

import (
	"context"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"keybot/internal/domain"
)

func newBufferedTelegram() *Telegram {
	return &Telegram{
		logger:        testLogger(),
		groupIDs:      make(map[string]int64),
		userIDs:       make(map[string]int64),
		pendingTeams:  make(map[string][]domain.ChatMessage),
		pendingDirect: make(map[string][]domain.ChatMessage),
	}
}

func groupUpdate(id int, chatID int64, title, sender, text string) tgbotapi.Update {
	return tgbotapi.Update{
		UpdateID: id,
		Message: &tgbotapi.Message{
			MessageID: id,
			From:      &tgbotapi.User{UserName: sender},
			Chat:      &tgbotapi.Chat{ID: chatID, Type: "group", Title: title},
			Text:      text,
		},
	}
}

func privateUpdate(id int, chatID int64, sender, text string) tgbotapi.Update {
	return tgbotapi.Update{
		UpdateID: id,
		Message: &tgbotapi.Message{
			MessageID: id,
			From:      &tgbotapi.User{UserName: sender},
			Chat:      &tgbotapi.Chat{ID: chatID, Type: "private"},
			Text:      text,
		},
	}
}

func TestTelegram_BucketRoutesByChatType(t *testing.T) {
	tg := newBufferedTelegram()

	tg.bucket(groupUpdate(1, 100, "crew", "alice", ".ping"))
	tg.bucket(privateUpdate(2, 200, "bob", ".help"))

	if len(tg.pendingTeams["crew"]) != 1 || tg.pendingTeams["crew"][0].Body != ".ping" {
		t.Fatalf("group message not buffered: %+v", tg.pendingTeams)
	}
	if len(tg.pendingDirect["bob"]) != 1 || tg.pendingDirect["bob"][0].Sender != "bob" {
		t.Fatalf("private message not buffered: %+v", tg.pendingDirect)
	}
	if tg.groupIDs["crew"] != 100 || tg.userIDs["bob"] != 200 {
		t.Fatalf("chat IDs not learned: %v %v", tg.groupIDs, tg.userIDs)
	}
}

func TestTelegram_BucketSkipsNonText(t *testing.T) {
	tg := newBufferedTelegram()

	tg.bucket(tgbotapi.Update{UpdateID: 1}) // no message at all
	tg.bucket(tgbotapi.Update{
		UpdateID: 2,
		Message: &tgbotapi.Message{
			MessageID: 2,
			From:      &tgbotapi.User{UserName: "alice"},
			Chat:      &tgbotapi.Chat{ID: 100, Type: "group", Title: "crew"},
			// empty Text: a sticker, photo, join event...
		},
	})

	if len(tg.pendingTeams) != 0 || len(tg.pendingDirect) != 0 {
		t.Fatalf("non-text updates must be dropped: %+v %+v", tg.pendingTeams, tg.pendingDirect)
	}
}

func TestTelegram_BucketFallsBackToFirstName(t *testing.T) {
	tg := newBufferedTelegram()
	tg.bucket(tgbotapi.Update{
		UpdateID: 1,
		Message: &tgbotapi.Message{
			MessageID: 1,
			From:      &tgbotapi.User{FirstName: "Alice"},
			Chat:      &tgbotapi.Chat{ID: 200, Type: "private"},
			Text:      "hi",
		},
	})
	if len(tg.pendingDirect["Alice"]) != 1 {
		t.Fatalf("sender should fall back to first name: %+v", tg.pendingDirect)
	}
}

func TestTelegram_FetchDrainsBuffer(t *testing.T) {
	tg := newBufferedTelegram()
	tg.bucket(groupUpdate(1, 100, "crew", "alice", ".ping"))
	tg.bucket(groupUpdate(2, 100, "crew", "bob", ".roll"))

	msgs, err := tg.FetchTeamMessages(context.Background(), "crew", telegramGeneralChannel)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(msgs) != 2 || msgs[0].Body != ".ping" || msgs[1].Body != ".roll" {
		t.Fatalf("messages must drain in arrival order: %+v", msgs)
	}

	again, err := tg.FetchTeamMessages(context.Background(), "crew", telegramGeneralChannel)
	if err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("fetch must mark messages read, got %+v", again)
	}
}

func TestTelegram_FetchRejectsUnknownChannel(t *testing.T) {
	tg := newBufferedTelegram()
	if _, err := tg.FetchTeamMessages(context.Background(), "crew", "random"); err == nil {
		t.Fatal("only the general channel exists on telegram groups")
	}
}

func TestTelegram_SendToUnknownConversation(t *testing.T) {
	tg := newBufferedTelegram()
	if _, err := tg.SendTeamMessage(context.Background(), "crew", telegramGeneralChannel, "x"); err == nil {
		t.Fatal("sending to a never-seen group must fail")
	}
	if _, err := tg.SendDirectMessage(context.Background(), "ghost", "x"); err == nil {
		t.Fatal("sending to a never-seen user must fail")
	}
}
