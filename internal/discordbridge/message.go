package discordbridge

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/igoryan-dao/remote-vibe-bridge/internal/agentproc"
	"github.com/igoryan-dao/remote-vibe-bridge/internal/attachment"
	"github.com/igoryan-dao/remote-vibe-bridge/internal/authz"
	"github.com/igoryan-dao/remote-vibe-bridge/internal/chunker"
	"github.com/igoryan-dao/remote-vibe-bridge/internal/descriptor"
	"github.com/igoryan-dao/remote-vibe-bridge/internal/orchestrator"
)

// threadRenameTimeout bounds the best-effort thread rename after a
// transcribed voice message, per §8's "2s best-effort" budget.
const threadRenameTimeout = 2 * time.Second

// threadNameCap is the max length, in runes, applied to a
// transcription-derived thread name.
const threadNameCap = 80

// onMessageCreate is the free-text handler: a plain message posted into a
// thread that already carries a thread->session binding continues that
// session. Per the thread-binding invariant, a message on an unbound
// thread (or in a plain project channel, which never carries a binding
// itself) is ignored.
func (b *Bridge) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.ID == s.State.User.ID {
		return
	}
	if !authz.Allowed(b.memberForMessage(s, m), b.Cfg.ManagedRole) {
		return
	}

	ctx := context.Background()

	sessionID, ok, err := b.Store.SessionForThread(ctx, m.ChannelID)
	if err != nil || !ok {
		return
	}

	directory, appID, err := b.directoryForThread(ctx, s, m.ChannelID)
	if err != nil {
		return
	}
	if appID != "" && appID != b.Cfg.Discord.AppID {
		return // channel owned by another app
	}

	prompt, images, transcript, err := b.resolveAttachments(ctx, m, directory)
	if err != nil {
		_, _ = b.Poster.PostMessage(ctx, m.ChannelID, "Failed to process attachment: "+err.Error())
		return
	}
	if prompt == "" && len(images) == 0 {
		return
	}
	if transcript != "" {
		b.echoTranscript(ctx, m.ChannelID, transcript)
		b.renameNewThread(s, m.ChannelID, transcript)
	}
	if m.Content != "" {
		prompt = strings.TrimSpace(m.Content + "\n" + prompt)
	}

	_ = sessionID // resolved again inside Submit; kept here only to confirm a binding exists

	_ = b.Orch.Submit(ctx, orchestrator.SubmitRequest{
		ThreadID:        m.ChannelID,
		ChannelID:       m.ChannelID,
		Directory:       directory,
		AppID:           b.Cfg.Discord.AppID,
		Prompt:          prompt,
		Images:          images,
		TriggeringMsgID: m.ID,
	})
}

// directoryForThread resolves the project directory (and owning app id)
// bound to a thread's parent channel.
func (b *Bridge) directoryForThread(ctx context.Context, s *discordgo.Session, threadID string) (directory, appID string, err error) {
	parentID := threadID
	var parent *discordgo.Channel
	if ch, cerr := s.State.Channel(threadID); cerr == nil && ch.ParentID != "" {
		parentID = ch.ParentID
	} else if ch, cerr := s.Channel(threadID); cerr == nil && ch.ParentID != "" {
		parentID = ch.ParentID
	}
	if ch, cerr := s.State.Channel(parentID); cerr == nil {
		parent = ch
	} else if ch, cerr := s.Channel(parentID); cerr == nil {
		parent = ch
	}

	cd, ok, err := b.Store.ChannelDirectory(ctx, parentID)
	if err != nil || !ok {
		return "", "", fmt.Errorf("discordbridge: no project bound to parent channel")
	}

	if parent != nil {
		appID = descriptor.Parse(parent.Topic).AppID
	}
	return cd.Directory, appID, nil
}

// resolveAttachments classifies every attachment per §4.11: audio routes
// to transcription and replaces the prompt text; image/pdf become file
// parts; text-like attachments are fetched and inlined. transcript carries
// the raw (unescaped) transcription text back to the caller so it can post
// the echo and drive the new-thread rename, independent of how prompt is
// later combined with m.Content.
func (b *Bridge) resolveAttachments(ctx context.Context, m *discordgo.MessageCreate, directory string) (prompt string, images []agentproc.PromptPart, transcript string, err error) {
	var inlineBuf strings.Builder

	for _, a := range m.Attachments {
		att := attachment.Attachment{Filename: a.Filename, MimeType: a.ContentType, URL: a.URL}
		switch attachment.Classify(att.MimeType) {
		case attachment.KindAudio:
			text, terr := b.transcribeAttachment(ctx, att, directory)
			if terr != nil {
				return "", nil, "", terr
			}
			prompt = text
			transcript = text

		case attachment.KindFile:
			images = append(images, attachment.ToFilePart(att))

		case attachment.KindText:
			envelope, ferr := attachment.FetchAndInline(ctx, b.HTTP, att)
			if ferr != nil {
				return "", nil, "", ferr
			}
			inlineBuf.WriteString(envelope)
			inlineBuf.WriteString("\n")
		}
	}

	if inlineBuf.Len() > 0 {
		prompt = strings.TrimSpace(prompt + "\n" + inlineBuf.String())
	}
	return prompt, images, transcript, nil
}

// echoTranscript posts the transcribed voice message back to the thread as
// a quoted echo per §8, escaping backticks so the transcription can't open
// or close a Markdown code span inside the bold quote line.
func (b *Bridge) echoTranscript(ctx context.Context, threadID, text string) {
	_, _ = b.Poster.PostMessage(ctx, threadID, fmt.Sprintf("📝 **Transcribed message:** %s", chunker.EscapeBackticks(text)))
}

// renameNewThread renames threadID to the transcription (capped at
// threadNameCap), but only the first time: a thread whose MessageCount is
// already past its first message is left alone. Best-effort, per §8's 2s
// budget — a failure here is swallowed, never propagated to the caller.
func (b *Bridge) renameNewThread(s *discordgo.Session, threadID, transcript string) {
	ch, cerr := s.State.Channel(threadID)
	if cerr != nil {
		var err error
		ch, err = s.Channel(threadID)
		if err != nil {
			return
		}
	}
	if !ch.IsThread() || ch.MessageCount > 1 {
		return
	}

	name := []rune(transcript)
	if len(name) > threadNameCap {
		name = name[:threadNameCap]
	}

	rctx, cancel := context.WithTimeout(context.Background(), threadRenameTimeout)
	defer cancel()
	_, _ = s.ChannelEdit(threadID, &discordgo.ChannelEdit{Name: string(name)}, discordgo.WithContext(rctx))
}

func (b *Bridge) transcribeAttachment(ctx context.Context, a attachment.Attachment, directory string) (string, error) {
	audio, err := downloadBytes(ctx, b.HTTP, a.URL)
	if err != nil {
		return "", fmt.Errorf("discordbridge: download attachment: %w", err)
	}

	var fileTree string
	if client, cerr := b.clientFor(ctx, directory); cerr == nil {
		if files, ferr := client.ListFiles(ctx); ferr == nil {
			fileTree = strings.Join(files, "\n")
		}
	}

	return b.Transcribe.Transcribe(ctx, audio, a.Filename, b.Cfg.Transcribe.LanguageHint, fileTree)
}

// downloadBytes fetches a URL's full body, used to pull a Discord
// attachment's raw bytes ahead of transcription.
func downloadBytes(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
