// Package ratelimit реализует sliding-window ограничитель запросов.
//
// Каждый HTTP-клиент владеет собственным Limiter'ом: бюджет не
// разделяется между аккаунтами. Admit блокирует вызывающую горутину,
// пока очередной запрос не уложится в лимит R запросов за скользящее
// окно. После пробуждения лимит перепроверяется — окно могло быть
// израсходовано конкурентным вызовом внутри того же клиента.
package ratelimit
