package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/converge-ai/convergeai/internal/xerrors"
	"github.com/converge-ai/convergeai/store"
)

const bookingColumns = `id, order_id, booking_number, user_ref, address_ref, subtotal, total, status, payment_status,
	preferred_date, preferred_time, special_instructions, cancelled_at, cancellation_reason, refund_amount, refund_percent,
	created_at, updated_at`

func scanBooking(row interface{ Scan(...any) error }, b *store.Booking) error {
	return row.Scan(&b.ID, &b.OrderID, &b.BookingNumber, &b.UserRef, &b.AddressRef, &b.Subtotal, &b.Total, &b.Status, &b.PaymentStatus,
		&b.PreferredDate, &b.PreferredTime, &b.SpecialInstructions, &b.CancelledAt, &b.CancellationReason, &b.RefundAmount, &b.RefundPercent,
		&b.CreatedAt, &b.UpdatedAt)
}

func (d *DB) CreateBooking(ctx context.Context, b store.Booking, items []store.BookingItem) (store.Booking, []store.BookingItem, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return store.Booking{}, nil, wrap(err, "begin booking tx")
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `INSERT INTO bookings
		(order_id, booking_number, user_ref, address_ref, subtotal, total, status, payment_status,
		 preferred_date, preferred_time, special_instructions, refund_amount, refund_percent, created_at, updated_at)
		VALUES (`+placeholders(15)+`)
		RETURNING id`,
		b.OrderID, b.BookingNumber, b.UserRef, b.AddressRef, b.Subtotal, b.Total, b.Status, b.PaymentStatus,
		b.PreferredDate, b.PreferredTime, b.SpecialInstructions, b.RefundAmount, b.RefundPercent, b.CreatedAt, b.UpdatedAt,
	).Scan(&b.ID)
	if err != nil {
		return store.Booking{}, nil, wrap(err, "insert booking")
	}

	for i := range items {
		items[i].BookingID = b.ID
		err = tx.QueryRowContext(ctx, `INSERT INTO booking_items
			(booking_id, rate_card_id, provider_ref, address_ref, service_name, quantity, unit_price, total_amount, final_amount,
			 scheduled_date, scheduled_window_from, scheduled_window_to, status, payment_status)
			VALUES (`+placeholders(14)+`)
			RETURNING id`,
			items[i].BookingID, items[i].RateCardID, items[i].ProviderRef, items[i].AddressRef, items[i].ServiceName, items[i].Quantity,
			items[i].UnitPrice, items[i].TotalAmount, items[i].FinalAmount,
			items[i].ScheduledDate, items[i].ScheduledWindowFrom, items[i].ScheduledWindowTo, items[i].Status, items[i].PaymentStatus,
		).Scan(&items[i].ID)
		if err != nil {
			return store.Booking{}, nil, wrap(err, "insert booking item")
		}
	}

	if err := tx.Commit(); err != nil {
		return store.Booking{}, nil, wrap(err, "commit booking tx")
	}
	return b, items, nil
}

func (d *DB) getBookingItems(ctx context.Context, bookingID uint64) ([]store.BookingItem, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT id, booking_id, rate_card_id, provider_ref, address_ref, service_name, quantity,
		unit_price, total_amount, final_amount, scheduled_date, scheduled_window_from, scheduled_window_to, status, payment_status
		FROM booking_items WHERE booking_id = `+placeholder(1), bookingID)
	if err != nil {
		return nil, wrap(err, "list booking items")
	}
	defer rows.Close()

	var items []store.BookingItem
	for rows.Next() {
		var it store.BookingItem
		if err := rows.Scan(&it.ID, &it.BookingID, &it.RateCardID, &it.ProviderRef, &it.AddressRef, &it.ServiceName, &it.Quantity,
			&it.UnitPrice, &it.TotalAmount, &it.FinalAmount, &it.ScheduledDate, &it.ScheduledWindowFrom, &it.ScheduledWindowTo,
			&it.Status, &it.PaymentStatus); err != nil {
			return nil, wrap(err, "scan booking item")
		}
		items = append(items, it)
	}
	return items, wrap(rows.Err(), "iterate booking items")
}

func (d *DB) GetBooking(ctx context.Context, q store.FindBooking) (store.Booking, []store.BookingItem, error) {
	where, args := []string{"1 = 1"}, []any{}
	if q.ID != nil {
		where = append(where, "id = "+placeholder(len(args)+1))
		args = append(args, *q.ID)
	}
	if q.UserRef != nil {
		where = append(where, "user_ref = "+placeholder(len(args)+1))
		args = append(args, *q.UserRef)
	}

	var b store.Booking
	row := d.db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE `+join(where, " AND ")+` ORDER BY created_at DESC LIMIT 1`, args...)
	if err := scanBooking(row, &b); err != nil {
		if err == sql.ErrNoRows {
			return store.Booking{}, nil, xerrors.New(xerrors.KindNotFound, "booking not found")
		}
		return store.Booking{}, nil, wrap(err, "get booking")
	}

	items, err := d.getBookingItems(ctx, b.ID)
	return b, items, err
}

func (d *DB) ListBookings(ctx context.Context, userRef uint64, limit, offset int) ([]store.Booking, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := d.db.QueryContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE user_ref = `+placeholder(1)+`
		ORDER BY created_at DESC LIMIT `+placeholder(2)+` OFFSET `+placeholder(3), userRef, limit, offset)
	if err != nil {
		return nil, wrap(err, "list bookings")
	}
	defer rows.Close()

	var out []store.Booking
	for rows.Next() {
		var b store.Booking
		if err := scanBooking(rows, &b); err != nil {
			return nil, wrap(err, "scan booking")
		}
		out = append(out, b)
	}
	return out, wrap(rows.Err(), "iterate bookings")
}

func (d *DB) CancelBooking(ctx context.Context, id uint64, refundAmount store.Money, refundPercent int, at time.Time) (store.Booking, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return store.Booking{}, wrap(err, "begin cancel tx")
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `UPDATE booking_items SET status = `+placeholder(1)+` WHERE booking_id = `+placeholder(2),
		store.BookingItemStatusCancelled, id)
	if err != nil {
		return store.Booking{}, wrap(err, "cancel booking items")
	}

	paymentStatus := store.PaymentStatusUnpaid
	if refundPercent > 0 {
		paymentStatus = store.PaymentStatusRefunded
	}

	var b store.Booking
	row := tx.QueryRowContext(ctx, `UPDATE bookings SET status = `+placeholder(1)+`, payment_status = `+placeholder(2)+`,
		refund_amount = `+placeholder(3)+`, refund_percent = `+placeholder(4)+`, cancelled_at = `+placeholder(5)+`, updated_at = `+placeholder(5)+`
		WHERE id = `+placeholder(6)+`
		RETURNING `+bookingColumns,
		store.BookingStatusCancelled, paymentStatus, refundAmount, refundPercent, at, id)
	if err := scanBooking(row, &b); err != nil {
		if err == sql.ErrNoRows {
			return store.Booking{}, xerrors.New(xerrors.KindNotFound, "booking not found")
		}
		return store.Booking{}, wrap(err, "cancel booking")
	}

	if err := tx.Commit(); err != nil {
		return store.Booking{}, wrap(err, "commit cancel tx")
	}
	return b, nil
}

func (d *DB) CountBookings(ctx context.Context, userRef uint64) (int, error) {
	var n int
	err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings WHERE user_ref = `+placeholder(1), userRef).Scan(&n)
	return n, wrap(err, "count bookings")
}

func (d *DB) ListBookingsByStatus(ctx context.Context, status store.BookingStatus, limit, offset int) ([]store.Booking, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := d.db.QueryContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE status = `+placeholder(1)+`
		ORDER BY created_at ASC LIMIT `+placeholder(2)+` OFFSET `+placeholder(3), status, limit, offset)
	if err != nil {
		return nil, wrap(err, "list bookings by status")
	}
	defer rows.Close()

	var out []store.Booking
	for rows.Next() {
		var b store.Booking
		if err := scanBooking(rows, &b); err != nil {
			return nil, wrap(err, "scan booking by status")
		}
		out = append(out, b)
	}
	return out, wrap(rows.Err(), "iterate bookings by status")
}

func (d *DB) ListDueBookings(ctx context.Context, q store.FindBookingsDue) ([]store.Booking, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT `+bookingColumns+` FROM bookings
		WHERE status = `+placeholder(1)+` AND created_at <= `+placeholder(2)+` ORDER BY created_at ASC`,
		q.Status, q.Before)
	if err != nil {
		return nil, wrap(err, "list due bookings")
	}
	defer rows.Close()

	var out []store.Booking
	for rows.Next() {
		var b store.Booking
		if err := scanBooking(rows, &b); err != nil {
			return nil, wrap(err, "scan due booking")
		}
		out = append(out, b)
	}
	return out, wrap(rows.Err(), "iterate due bookings")
}
