// Package view computes the display values the HTML templates render:
// status badges, the rotating server card, forum pagination, category labels,
// dates and avatars. Everything here is pure and safe to call from templates.
package view
