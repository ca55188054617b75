// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/YunjiaXi/InfoDeepSeek/pkg/chain"
	"github.com/YunjiaXi/InfoDeepSeek/pkg/core"
	"github.com/YunjiaXi/InfoDeepSeek/pkg/jsonfix"
	"github.com/YunjiaXi/InfoDeepSeek/pkg/memory"
	"github.com/YunjiaXi/InfoDeepSeek/pkg/prompt"
	"github.com/YunjiaXi/InfoDeepSeek/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// conclude produces the online answer, the optional offline answer, the
// ranked webpages and one answer per rank.
func (s *session) conclude(ctx context.Context) (string, MoreInfo, error) {
	ctx, span := s.agent.tracer.Start(ctx, "Agent.Conclude")
	defer span.End()

	mem := memory.Build(s.history, s.completed)

	var text string
	if s.noTaskPlanned {
		text = prompt.NoTaskConclusion(s.goal, s.history)
	} else {
		var err error
		if text, err = s.render.Conclusion(s.cfg.Profile, s.goal, mem); err != nil {
			return "", MoreInfo{}, err
		}
	}
	response, err := s.ask(ctx, text, chain.TypeConclusion, s.cfg.SmartModel)
	if err != nil {
		return "", MoreInfo{}, err
	}
	s.log.Put(core.EventConclusion, "online:\n"+response)

	var info MoreInfo
	if s.cfg.Offline {
		offline, err := s.ask(ctx, prompt.NoTaskConclusion(s.goal, s.history), chain.TypeConclusion, s.cfg.SmartModel)
		if err != nil {
			return "", MoreInfo{}, err
		}
		s.log.Put(core.EventConclusion, "offline:\n"+offline)
		info.OfflineResponse = &offline
	}

	webpages, err := s.rank(ctx, mem)
	if err != nil {
		return "", MoreInfo{}, err
	}
	info.RankedWebpages = webpages
	s.agent.metrics.RankedWebpages(ctx, len(webpages))
	span.SetAttributes(attribute.Int(telemetry.AttrWebpages, len(webpages)))

	if info.AnswerAtK, err = s.answerAtK(ctx, webpages); err != nil {
		return "", MoreInfo{}, err
	}
	return response, info, nil
}

// rank asks for the most relevant webpages. Unparseable output degrades to
// an empty list.
func (s *session) rank(ctx context.Context, mem string) ([]core.Webpage, error) {
	text, err := s.render.Ranking(s.cfg.Profile, s.goal, mem, s.cfg.MaxWebpages)
	if err != nil {
		return nil, err
	}
	response, err := s.ask(ctx, text, chain.TypeConclusion, s.cfg.SmartModel)
	if err != nil {
		return nil, err
	}

	var pages []core.Webpage
	parsed := jsonfix.ParseList(response)
	if parsed.OK() {
		for _, item := range parsed.Items {
			var page core.Webpage
			if err := json.Unmarshal(item, &page); err != nil {
				continue
			}
			pages = append(pages, page)
		}
	} else {
		s.logger.Warn("agent.rank.failed", slog.String("error", errString(parsed.Err)))
	}
	webpages := core.MergeWebpages(pages, s.cfg.MaxWebpages)
	s.log.Put(core.EventRanking, marshalWebpages(webpages))
	return webpages, nil
}

// answerAtK answers the goal from the top k webpages for every k. Without
// webpages every rank maps to nil and the oracle is not consulted.
func (s *session) answerAtK(ctx context.Context, webpages []core.Webpage) (map[int]*string, error) {
	answers := make(map[int]*string, s.cfg.MaxWebpages)
	if len(webpages) == 0 {
		for k := 1; k <= s.cfg.MaxWebpages; k++ {
			answers[k] = nil
		}
		return answers, nil
	}

	for k := 1; k <= len(webpages); k++ {
		answer, err := s.answer(ctx, webpages[:k], k)
		if err != nil {
			return nil, err
		}
		answers[k] = &answer
		s.log.Put(core.EventAnswer, fmt.Sprintf("answer_at_%d:\n%s", k, answer))
	}
	return answers, nil
}

func (s *session) answer(ctx context.Context, webpages []core.Webpage, k int) (string, error) {
	ctx, span := s.agent.tracer.Start(ctx, "Agent.Answer",
		trace.WithAttributes(attribute.Int(telemetry.AttrRank, k)),
	)
	defer span.End()

	text, err := s.render.Answer(s.cfg.Profile, s.goal, webpages)
	if err != nil {
		return "", err
	}
	return s.ask(ctx, text, chain.TypeAnswer, s.cfg.SmartModel)
}

func marshalWebpages(pages []core.Webpage) string {
	if pages == nil {
		pages = []core.Webpage{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(pages); err != nil {
		return "[]"
	}
	return strings.TrimRight(buf.String(), "\n")
}
